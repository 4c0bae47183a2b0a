package config

import (
	"fmt"
	"time"

	"git.home.luguber.info/inful/assembler/internal/foundation/errors"
)

// Validate checks the config and returns the first violation as a
// ConfigValidation error.
func (c *Config) Validate() error {
	if len(c.Builds) == 0 {
		return errors.ConfigValidation("builds", "at least one build must be configured")
	}
	for i, b := range c.Builds {
		if b.Src == "" {
			return errors.ConfigValidation(fmt.Sprintf("builds[%d].src", i), fmt.Sprintf("build #%d is missing a src", i))
		}
		if b.Use == "" {
			return errors.ConfigValidation(fmt.Sprintf("builds[%d].use", i), fmt.Sprintf("build %q is missing a builder (use)", b.Src))
		}
	}
	for id, cb := range c.Builders {
		if cb.Command == "" {
			return errors.ConfigValidation("builders."+id+".command", fmt.Sprintf("builder %q has no command", id))
		}
		if cb.Timeout != "" {
			if d, err := time.ParseDuration(cb.Timeout); err != nil || d <= 0 {
				return errors.ConfigValidation("builders."+id+".timeout", fmt.Sprintf("builder %q has an invalid timeout %q", id, cb.Timeout))
			}
		}
	}
	for i, r := range c.Routes {
		if r.Handle == "" && r.Src == "" {
			return errors.ConfigValidation(fmt.Sprintf("routes[%d]", i), fmt.Sprintf("route #%d needs either src or handle", i))
		}
		if r.Handle != "" && r.Src != "" {
			return errors.ConfigValidation(fmt.Sprintf("routes[%d]", i), fmt.Sprintf("route #%d cannot combine handle and src", i))
		}
	}
	for i, cr := range c.Crons {
		if cr.Path == "" || cr.Schedule == "" {
			return errors.ConfigValidation(fmt.Sprintf("crons[%d]", i), fmt.Sprintf("cron #%d needs both path and schedule", i))
		}
	}
	if c.Notify.Subject != "" && c.Notify.NATSURL == "" {
		return errors.ConfigValidation("notify.nats_url", "notify.subject is set but notify.nats_url is empty")
	}
	return nil
}
