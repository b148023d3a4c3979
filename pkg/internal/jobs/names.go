// Package jobs 定义后台定时任务.
package jobs

// 任务名称.
const (
	// JobMembershipExpiry 到期订阅的停用扫描.
	JobMembershipExpiry = "membership-expiry-sweep"
)

// 默认调度表达式.
const (
	// MembershipExpiryCron 每小时整点扫描一次到期订阅.
	MembershipExpiryCron = "0 * * * *"
)
