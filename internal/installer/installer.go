// Package installer executes an install plan: copies content trees into
// the game, patches the executable and render library at fixed byte
// offsets, updates the config XML and persists the installation manifest.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/blackwell-systems/commodctl/internal/game"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/util"
)

// ProgressFunc receives copy progress. Calls are rate-limited so a UI can
// bind it directly to a progress bar.
type ProgressFunc func(done, total int, name string, size int64)

// StatusFunc receives coarse step announcements.
type StatusFunc func(status string)

// Installer runs installs for one configured environment.
type Installer struct {
	log *zap.SugaredLogger

	Progress ProgressFunc
	Status   StatusFunc

	// MonitorWidth picks the resolution ladder on remaster installs.
	MonitorWidth int

	limiter *rate.Limiter
}

// progressRate caps progress callbacks at roughly screen refresh rate.
const progressRate = 60

// New creates an Installer. Callbacks may be left nil.
func New(log *zap.SugaredLogger) *Installer {
	return &Installer{
		log:          log,
		MonitorWidth: TargetResX,
		limiter:      rate.NewLimiter(rate.Limit(progressRate), 1),
	}
}

// Settings are the install decisions: a "base" key plus one entry per
// optional content name.
type Settings map[string]string

// BuildSettings fills a complete settings map for a mod from explicit
// choices, falling back to forced and default options.
func BuildSettings(m *mods.Mod, chosen map[string]string) (Settings, error) {
	s := Settings{"base": "yes"}
	if v, ok := chosen["base"]; ok {
		if v != "yes" && v != "skip" {
			return nil, fmt.Errorf("base must be yes or skip, got %q", v)
		}
		if v == "skip" && !m.NoBaseContent {
			return nil, fmt.Errorf("mod %s has base content, base cannot be skipped", m.Name)
		}
		s["base"] = v
	}
	for i := range m.Options {
		opt := &m.Options[i]
		v, ok := chosen[opt.Name]
		if !ok {
			v = defaultChoice(opt)
		}
		if !opt.ValidChoice(v) {
			return nil, fmt.Errorf("invalid choice %q for option %s of %s", v, opt.Name, m.Name)
		}
		s[opt.Name] = v
	}
	for k := range chosen {
		if k != "base" && m.OptionByName(k) == nil {
			return nil, fmt.Errorf("mod %s has no option %q", m.Name, k)
		}
	}
	return s, nil
}

func defaultChoice(opt *mods.OptionalContent) string {
	if opt.ForcedOption {
		return "yes"
	}
	switch opt.DefaultOption {
	case "", "skip":
		return "skip"
	case "install":
		return "yes"
	}
	return opt.DefaultOption
}

// copyJob is one tree copy of the install plan, in execution order.
type copyJob struct {
	srcRoot string
	dstRoot string
	status  string
}

// Install runs the whole plan. On success the game copy's installed
// content is updated and the installation manifest rewritten; manifest
// persistence is the last observable side effect. A failure in the patch
// phase aborts without rolling back file copies; the probe will recognize
// the leftover state on the next open.
func (ins *Installer) Install(ctx context.Context, m *mods.Mod, settings Settings, gc *game.Copy) error {
	mu := game.Lock(gc.GameRootPath)
	mu.Lock()
	defer mu.Unlock()

	jobs, err := ins.plan(m, settings, gc)
	if err != nil {
		return err
	}
	if err := ins.runCopies(ctx, jobs); err != nil {
		return err
	}
	if m.Name == "community_remaster" {
		if err := ins.renameStockEffects(gc); err != nil {
			return err
		}
	}

	ins.status("updating_config")
	globProps, err := patchConfigCfg(gc.GameRootPath, m.ConfigOptions)
	if err != nil {
		return err
	}

	remaster := m.Name == "community_remaster"
	patchable := remaster || m.Name == "community_patch" || m.IsVanilla()
	if patchable {
		gravity := DefaultGravity
		if m.PatcherOptions.HasGravity {
			gravity = m.PatcherOptions.Gravity
		}
		if err := patchClashCoeff(gc.GameRootPath, gravity); err != nil {
			return err
		}
		ins.status("patching_exe")
		if err := ins.patchExecutable(ctx, m, gc, remaster); err != nil {
			return err
		}
		if globProps != "" {
			if err := patchGlobalProps(gc.GameRootPath, globProps, remaster); err != nil {
				return err
			}
		}
	}

	if remaster {
		ins.status("patching_render_dll")
		if err := ins.patchRenderDLL(gc); err != nil {
			return err
		}
	}

	ins.status("saving_manifest")
	record := buildRecord(m, settings)
	gc.InstalledContent[m.Name] = record
	gc.InstalledDescriptions[m.Name] = m.DisplayName + " " + m.Version.String()
	if err := game.SaveManifest(gc.GameRootPath, gc.InstalledContent); err != nil {
		return err
	}
	ins.log.Infow("installed mod", "mod", m.Name, "version", m.Version.String(), "game", gc.GameRootPath)
	return nil
}

// plan resolves the ordered copy jobs for the chosen settings.
func (ins *Installer) plan(m *mods.Mod, settings Settings, gc *game.Copy) ([]copyJob, error) {
	dataDst := filepath.Join(gc.GameRootPath, "data")
	var jobs []copyJob

	if settings["base"] != "skip" {
		jobs = append(jobs, copyJob{
			srcRoot: filepath.Join(m.DistributionDir, "data"),
			dstRoot: dataDst,
			status:  "copying_base",
		})
	}

	for i := range m.Options {
		opt := &m.Options[i]
		choice := settings[opt.Name]
		if choice == "" || choice == "skip" {
			continue
		}
		jobs = append(jobs, copyJob{
			srcRoot: filepath.Join(m.DistributionDir, opt.Name, "data"),
			dstRoot: dataDst,
			status:  "copying_option_" + opt.Name,
		})
		if choice != "yes" {
			// A named install setting overlays the option's base files.
			jobs = append(jobs, copyJob{
				srcRoot: filepath.Join(m.DistributionDir, opt.Name, choice, "data"),
				dstRoot: dataDst,
				status:  "copying_option_" + opt.Name + "_" + choice,
			})
		}
	}

	if m.Name == "community_remaster" {
		parent := filepath.Dir(m.DistributionDir)
		patchDir := filepath.Join(parent, "patch")
		libsDir := filepath.Join(parent, "libs")
		for _, d := range []string{patchDir, libsDir} {
			if st, err := os.Stat(d); err != nil || !st.IsDir() {
				return nil, &CorruptedRemasterFiles{Path: d, Reason: "directory is missing"}
			}
		}
		jobs = append(jobs,
			copyJob{srcRoot: patchDir, dstRoot: dataDst, status: "copying_patch"},
			copyJob{srcRoot: libsDir, dstRoot: gc.GameRootPath, status: "copying_libs"},
		)
	}
	return jobs, nil
}

// runCopies executes the copy jobs in order. Enumeration happens up front
// so progress can report a real total; within a job, files copy in
// pre-order and later jobs strictly overwrite earlier ones.
func (ins *Installer) runCopies(ctx context.Context, jobs []copyJob) error {
	type fileCopy struct {
		src, dst string
		name     string
		size     int64
		status   string
	}
	var files []fileCopy
	for _, job := range jobs {
		entries, err := util.ListTree(job.srcRoot)
		if err != nil {
			return &CopyError{Src: job.srcRoot, Dst: job.dstRoot, Cause: err}
		}
		for _, e := range entries {
			files = append(files, fileCopy{
				src:    filepath.Join(job.srcRoot, e.RelPath),
				dst:    filepath.Join(job.dstRoot, e.RelPath),
				name:   e.RelPath,
				size:   e.Size,
				status: job.status,
			})
		}
	}

	lastStatus := ""
	for i, fc := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fc.status != lastStatus {
			ins.status(fc.status)
			lastStatus = fc.status
		}
		if err := util.CopyFileRetry(ctx, fc.src, fc.dst); err != nil {
			return &CopyError{Src: fc.src, Dst: fc.dst, Cause: err}
		}
		ins.progress(i+1, len(files), fc.name, fc.size)
	}
	return nil
}

// renameStockEffects renames data/models/effects.bps so the remaster's
// replacement takes over. Already-renamed or missing files only warn.
func (ins *Installer) renameStockEffects(gc *game.Copy) error {
	modelsDir := filepath.Join(gc.GameRootPath, "data", "models")
	src := filepath.Join(modelsDir, "effects.bps")
	dst := filepath.Join(modelsDir, "stock_effects.bps")
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		ins.log.Warnw("effects.bps not found, skipping rename", "path", src)
		return nil
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("renaming effects.bps: %w", err)
	}
	return nil
}

func (ins *Installer) patchExecutable(ctx context.Context, m *mods.Mod, gc *game.Copy, remaster bool) error {
	f, err := openRW(gc.TargetExe)
	if err != nil {
		return &PatchError{Offset: 0, Cause: err}
	}
	defer f.Close()
	return patchExe(ctx, f, exePatchOpts{
		remaster:     remaster,
		build:        m.Build,
		monitorWidth: ins.MonitorWidth,
		patcherOpts:  m.PatcherOptions,
	})
}

func (ins *Installer) patchRenderDLL(gc *game.Copy) error {
	path := filepath.Join(gc.GameRootPath, "dxrender9.dll")
	f, err := openRW(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrDXRenderDllNotFound
		}
		return &PatchError{Offset: 0, Cause: err}
	}
	defer f.Close()
	return patchDLL(f)
}

// buildRecord produces the installation record merged into the manifest.
func buildRecord(m *mods.Mod, settings Settings) game.Record {
	rec := game.Record{
		Base:        settings["base"],
		Version:     m.Version.String(),
		Build:       m.Build,
		Language:    m.Language,
		Installment: string(m.Installment),
		DisplayName: m.DisplayName,
		Options:     map[string]string{},
	}
	for k, v := range settings {
		if k != "base" {
			rec.Options[k] = v
		}
	}
	return rec
}

func (ins *Installer) status(s string) {
	if ins.Status != nil {
		ins.Status(s)
	}
	ins.log.Debugw("install step", "status", s)
}

// progress forwards to the callback under the rate limiter; the final file
// of the plan always reports so bars reach 100%.
func (ins *Installer) progress(done, total int, name string, size int64) {
	if ins.Progress == nil {
		return
	}
	if done == total || ins.limiter.Allow() {
		ins.Progress(done, total, name, size)
	}
}
