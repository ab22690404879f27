package commands

import (
	"time"

	"github.com/MEKXH/warden/internal/checker"
	"github.com/MEKXH/warden/internal/config"
	"github.com/MEKXH/warden/internal/policy"
	"github.com/MEKXH/warden/internal/policyfile"
	"github.com/MEKXH/warden/internal/tools"
)

// session bundles everything one CLI invocation needs to evaluate calls.
type session struct {
	engine   *policy.Engine
	registry *tools.Registry
	runner   *checker.Runner
	// loadErrors are non-fatal problems found while assembling the
	// policy: unparsable files, invalid rules, unknown checkers.
	loadErrors []string
}

// buildSession assembles the policy engine from the configured layers:
// bundled default policy files, then user policy directories, then
// structured settings.
func buildSession(cfg *config.Config) (*session, error) {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, err
	}

	runner := checker.NewRunner(time.Duration(cfg.Checkers.ExternalTimeout) * time.Second)

	defaults := policyfile.LoadDir(cfg.Policy.DefaultDir)

	var user policy.Load
	for _, dir := range cfg.Policy.Dirs {
		if dir == cfg.Policy.DefaultDir {
			continue
		}
		load := policyfile.LoadDir(dir)
		user.Rules = append(user.Rules, load.Rules...)
		user.Checkers = append(user.Checkers, load.Checkers...)
		user.Errors = append(user.Errors, load.Errors...)
	}

	engineCfg, errs := policy.Assemble(cfg.Settings(), defaults, user, policy.AssembleOptions{
		KnownInProcessChecker: runner.Known,
	})
	engineCfg.ShellTool = cfg.Tools.ShellTool
	engineCfg.Aliases = policy.NewAliasTable(registry.Aliases())
	engineCfg.Runner = runner

	return &session{
		engine:     policy.NewEngine(engineCfg),
		registry:   registry,
		runner:     runner,
		loadErrors: errs,
	}, nil
}
