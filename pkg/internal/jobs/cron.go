package jobs

import (
	"context"

	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/service"
	flog "github.com/yeisme/filevault/pkg/log"
	"github.com/yeisme/filevault/pkg/scheduler"
)

// RegisterCronJobs 把全部后台任务挂到调度器上. ctx 需携带存储管理器.
func RegisterCronJobs(ctx context.Context, s *scheduler.Scheduler) error {
	return s.AddCron(ctx, JobMembershipExpiry, MembershipExpiryCron, membershipExpirySweep)
}

// membershipExpirySweep 停用到期订阅. 到期属主的限额在读路径上已按免费档
// 处理，这里只做账面收尾并发出到期事件.
func membershipExpirySweep(ctx context.Context) {
	logger := ctxPkg.WithTraceContext(ctx, *flog.Logger())

	svc := service.NewMembershipService(ctx)

	n, err := svc.ExpireSweep(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("到期订阅扫描失败")
		return
	}

	if n > 0 {
		logger.Info().Int("deactivated", n).Msg("到期订阅扫描完成")
	}
}
