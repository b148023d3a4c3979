// Package rule 提供结构体和字段验证功能的封装，基于 go-playground/validator 实现.
package rule

import (
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	inst *validator.Validate
	once sync.Once
)

// initValidator 尝试复用 gin 的 validator 引擎；若不可用则新建并注册 tag name 函数.
func initValidator() {
	if engine := binding.Validator.Engine(); engine != nil {
		if v, ok := engine.(*validator.Validate); ok {
			inst = v
			inst.SetTagName("rule")

			registerCustom(inst)

			return
		}
	}

	inst = validator.New()
	inst.SetTagName("rule")

	registerCustom(inst)
}

// registerCustom 注册领域自定义规则.
func registerCustom(v *validator.Validate) {
	// filename: 不允许路径分隔符与父目录引用，防止逃出属主目录.
	_ = v.RegisterValidation("filename", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		if name == "" || name == "." || name == ".." {
			return false
		}

		return !strings.ContainsAny(name, `/\`)
	})

	// permission: 文件可见性取值.
	v.RegisterAlias("permission", "oneof=private public")
}

// lazyInit 初始化全局 validator（幂等）.
func lazyInit() {
	once.Do(initValidator)
}

// Engine 返回全局 *validator.Validate，若未初始化则先初始化.
func Engine() *validator.Validate {
	lazyInit()

	return inst
}

// ValidateStruct 对结构体执行完整校验.
func ValidateStruct(s any) error {
	lazyInit()

	return inst.Struct(s)
}

// ValidateVar 按规则对单个变量校验，例如: ValidateVar("abc", "required,filename").
func ValidateVar(field any, tag string) error {
	lazyInit()

	return inst.Var(field, tag)
}

// RegisterAlias 包装 RegisterAlias，便于注册别名规则.
func RegisterAlias(alias, rules string) {
	lazyInit()

	inst.RegisterAlias(alias, rules)
}
