package mods

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var imageExts = []string{".png", ".jpg", ".jpeg", ".gif"}
var markdownExts = []string{".md", ".txt"}

// LoadGUIInfo resolves the presentation assets referenced by the manifest
// against the distribution directory. Unresolved logo, banner and text
// entries are cleared; unresolved screenshots are dropped. Nothing here
// fails the load.
func (m *Mod) LoadGUIInfo(log *zap.SugaredLogger) {
	m.Logo = m.resolveAsset(m.Logo, imageExts, "logo", log)
	m.InstallBanner = m.resolveAsset(m.InstallBanner, imageExts, "install_banner", log)
	m.ChangeLog = m.resolveAsset(m.ChangeLog, markdownExts, "change_log", log)
	m.OtherInfo = m.resolveAsset(m.OtherInfo, markdownExts, "other_info", log)

	kept := m.Screenshots[:0]
	for _, s := range m.Screenshots {
		img := m.resolveAsset(s.Img, imageExts, "screenshot", log)
		if img == "" {
			continue
		}
		s.Img = img
		s.Compare = m.resolveAsset(s.Compare, imageExts, "screenshot compare", log)
		kept = append(kept, s)
	}
	m.Screenshots = kept
}

// resolveAsset checks that rel exists under the distribution dir and has an
// allowed extension. Returns rel unchanged on success, "" otherwise.
func (m *Mod) resolveAsset(rel string, exts []string, what string, log *zap.SugaredLogger) string {
	if rel == "" {
		return ""
	}
	ext := strings.ToLower(filepath.Ext(rel))
	allowed := false
	for _, e := range exts {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		log.Warnw("asset has unsupported extension", "mod", m.Name, "kind", what, "path", rel)
		return ""
	}
	if _, err := os.Stat(filepath.Join(m.DistributionDir, rel)); err != nil {
		log.Warnw("asset file not found", "mod", m.Name, "kind", what, "path", rel)
		return ""
	}
	return rel
}
