package rule_test

import (
	"testing"

	"github.com/gin-gonic/gin/binding"

	"github.com/yeisme/filevault/pkg/rule"
)

// TestValidateVar_Filename 测试 filename 规则.
func TestValidateVar_Filename(t *testing.T) {
	valid := []string{"report.pdf", "数据.zip", "a b c.txt", "no_ext"}
	for _, name := range valid {
		if err := rule.ValidateVar(name, "filename"); err != nil {
			t.Errorf("expected %q to be a valid filename: %v", name, err)
		}
	}

	invalid := []string{"", ".", "..", "a/b.txt", `a\b.txt`, "../escape"}
	for _, name := range invalid {
		if err := rule.ValidateVar(name, "filename"); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

// TestValidateVar_Permission 测试 permission 别名规则.
func TestValidateVar_Permission(t *testing.T) {
	for _, p := range []string{"private", "public"} {
		if err := rule.ValidateVar(p, "permission"); err != nil {
			t.Errorf("expected %q to be a valid permission: %v", p, err)
		}
	}

	for _, p := range []string{"", "shared", "PUBLIC"} {
		if err := rule.ValidateVar(p, "permission"); err == nil {
			t.Errorf("expected %q to be rejected", p)
		}
	}
}

// TestValidateStruct 测试结构体校验.
func TestValidateStruct(t *testing.T) {
	type req struct {
		Name       string `rule:"required,filename,max=255"`
		Permission string `rule:"omitempty,permission"`
	}

	if err := rule.ValidateStruct(req{Name: "ok.txt", Permission: "public"}); err != nil {
		t.Errorf("expected valid struct, got %v", err)
	}

	if err := rule.ValidateStruct(req{Name: "../nope"}); err == nil {
		t.Error("expected invalid filename to be rejected")
	}
}

// TestEngineBindsGinValidator 验证 Engine 接管 gin 共享校验引擎后，
// 请求绑定路径上的 rule 标签立即生效（启动时调用一次即可覆盖首个请求）.
func TestEngineBindsGinValidator(t *testing.T) {
	rule.Engine()

	type form struct {
		Description string `rule:"omitempty,max=4"`
	}

	if err := binding.Validator.ValidateStruct(&form{Description: "ok"}); err != nil {
		t.Errorf("expected valid form, got %v", err)
	}

	if err := binding.Validator.ValidateStruct(&form{Description: "too long"}); err == nil {
		t.Error("expected rule tag to be enforced by the binding engine")
	}
}
