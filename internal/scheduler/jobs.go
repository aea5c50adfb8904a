package scheduler

import (
	"strings"

	command "github.com/goliatone/go-command"

	sitecmd "github.com/goliatone/go-sitecms/internal/commands/site"
)

const (
	JobPublishScheduled = "publish-scheduled"
	JobKeepWarm         = "keep-warm"
	JobRevalidateHomes  = "revalidate-homes"
)

// Jobs holds one cron expression per job. A blank expression leaves the job
// out.
type Jobs struct {
	PublishScheduled string `mapstructure:"publish_scheduled" json:"publish_scheduled"`
	KeepWarm         string `mapstructure:"keep_warm" json:"keep_warm"`
	RevalidateHomes  string `mapstructure:"revalidate_homes" json:"revalidate_homes"`
}

// DefaultJobs mirrors the hosted cron the site ran on: scheduled publishing
// every minute, a keep-warm ping every five minutes, home pages hourly.
func DefaultJobs() Jobs {
	return Jobs{
		PublishScheduled: "@every 1m",
		KeepWarm:         "@every 5m",
		RevalidateHomes:  "@hourly",
	}
}

// RegisterJobs schedules the site commands. homes are the locale home paths
// revalidated by JobRevalidateHomes.
func RegisterJobs(s *Scheduler, set *sitecmd.HandlerSet, homes []string, jobs Jobs) error {
	if set == nil {
		return nil
	}
	if expr := strings.TrimSpace(jobs.PublishScheduled); expr != "" {
		if err := sitecmd.RegisterCron[sitecmd.PublishScheduledCommand](s.Registrar(JobPublishScheduled), set.Publish,
			command.HandlerConfig{Expression: expr}, sitecmd.PublishScheduledCommand{}); err != nil {
			return err
		}
	}
	if expr := strings.TrimSpace(jobs.KeepWarm); expr != "" {
		if err := sitecmd.RegisterCron[sitecmd.KeepWarmCommand](s.Registrar(JobKeepWarm), set.KeepWarm,
			command.HandlerConfig{Expression: expr}, sitecmd.KeepWarmCommand{}); err != nil {
			return err
		}
	}
	if expr := strings.TrimSpace(jobs.RevalidateHomes); expr != "" && len(homes) > 0 {
		msg := sitecmd.RevalidatePathsCommand{Paths: append([]string(nil), homes...)}
		if err := sitecmd.RegisterCron[sitecmd.RevalidatePathsCommand](s.Registrar(JobRevalidateHomes), set.Revalidate,
			command.HandlerConfig{Expression: expr}, msg); err != nil {
			return err
		}
	}
	return nil
}
