// Package events 定义业务事件的主题、负载与发布辅助，供下游审计与异步处理订阅.
package events

// 主题命名规范：fv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：file(文件)、membership(会员)、storage(用量)
// 动作：stored/deleted/renamed/updated、changed、full

const (
	// 文件领域.
	TopicFileStored  = "fv.file.stored"  // 文件写入完成（字节落位且元数据入库）
	TopicFileDeleted = "fv.file.deleted" // 文件删除完成
	TopicFileRenamed = "fv.file.renamed" // 文件改名完成
	TopicFileUpdated = "fv.file.updated" // 文件属性（可见性/描述）更新

	// 会员领域.
	TopicMembershipChanged = "fv.membership.changed" // 订阅创建/升级/续期
	TopicMembershipExpired = "fv.membership.expired" // 订阅到期被停用

	// 用量领域.
	TopicStorageFull = "fv.storage.full" // 属主存储接近或达到上限
)

// 主题分组，用于批量订阅.
var (
	// FileTopics 文件相关主题集合.
	FileTopics = []string{
		TopicFileStored, TopicFileDeleted, TopicFileRenamed, TopicFileUpdated,
	}

	// MembershipTopics 会员相关主题集合.
	MembershipTopics = []string{
		TopicMembershipChanged, TopicMembershipExpired,
	}
)
