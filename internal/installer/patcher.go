package installer

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackwell-systems/commodctl/internal/gamexml"
	"github.com/blackwell-systems/commodctl/internal/mods"
)

// patchTarget is the open file being patched.
type patchTarget interface {
	io.ReaderAt
	io.WriterAt
}

func writeAt(f patchTarget, offset int64, data []byte) error {
	if _, err := f.WriteAt(data, offset); err != nil {
		return &PatchError{Offset: offset, Cause: err}
	}
	return nil
}

// exePatchOpts selects the patch sections to run.
type exePatchOpts struct {
	remaster     bool
	build        string
	monitorWidth int
	patcherOpts  mods.PatcherOptions
}

// patchExe applies the full executable patch sequence. The context is
// checked once per section; the copy steps before this have already
// finished, so cancellation here leaves a recognizable leftover state.
func patchExe(ctx context.Context, f patchTarget, opts exePatchOpts) error {
	sections := []func() error{
		func() error {
			if !opts.remaster {
				return nil
			}
			return patchWidescreen(f)
		},
		func() error { return applyInserts(f, binaryInserts) },
		func() error { return applyInserts(f, mmInserts) },
		func() error { return applyValues(f, offsetsExeFixes, PatchValue.EncodeExe) },
		func() error {
			if !opts.remaster {
				return nil
			}
			if err := applyValues(f, offsetsExeUI, PatchValue.EncodeExe); err != nil {
				return err
			}
			if err := scaleFloats(f, offsetsFontSizes, EnlargeUICoef, 0); err != nil {
				return err
			}
			return patchResolutionList(f, opts.monitorWidth)
		},
		func() error { return patchTexts(f, opts.build) },
		func() error { return patchConfigurables(f, opts.patcherOpts) },
	}
	for _, section := range sections {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := section(); err != nil {
			return err
		}
	}
	return nil
}

// patchDLL applies the render-library fixes with the DLL encoding rules.
func patchDLL(f patchTarget) error {
	return applyValues(f, offsetsDLL, PatchValue.EncodeDLL)
}

func applyInserts(f patchTarget, table map[int64]string) error {
	for _, off := range sortedOffsets(table) {
		if err := writeAt(f, off, encodeHexBlob(table[off])); err != nil {
			return err
		}
	}
	return nil
}

func applyValues(f patchTarget, table map[int64]PatchValue, encode func(PatchValue) []byte) error {
	for _, off := range sortedOffsets(table) {
		if err := writeAt(f, off, encode(table[off])); err != nil {
			return err
		}
	}
	return nil
}

// patchWidescreen rescales the absolute UI sizes and X positions that were
// authored for 768 lines.
func patchWidescreen(f patchTarget) error {
	if err := scaleFloats(f, offsetsAbsSizes, EnlargeUICoef, 0); err != nil {
		return err
	}
	shift := float32(PartialStretchOffset * float64(TargetResX))
	return scaleFloats(f, offsetsAbsMoveX, EnlargeUICoef*PartialStretch, shift)
}

// scaleFloats reads a float32 at each offset, multiplies by coef, adds
// shift and writes it back.
func scaleFloats(f patchTarget, offsets []int64, coef float64, shift float32) error {
	buf := make([]byte, 4)
	for _, off := range offsets {
		if _, err := f.ReadAt(buf, off); err != nil {
			return &PatchError{Offset: off, Cause: err}
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(buf))
		v = float32(float64(v)*coef) + shift
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		if err := writeAt(f, off, buf); err != nil {
			return err
		}
	}
	return nil
}

// patchResolutionList writes the five resolution menu slots, derived from
// the monitor width with a fallback to the default ladder.
func patchResolutionList(f patchTarget, monitorWidth int) error {
	widths, ok := preferredResolutions[monitorWidth]
	if !ok {
		widths = DefaultResolutions
	}
	for i, slot := range offsetsResolutionList {
		w := widths[i]
		h, ok := possibleResolutions[w]
		if !ok {
			h = w * 3 / 4
		}
		if err := writeAt(f, slot.widthOff, Int32(int32(w)).EncodeExe()); err != nil {
			return err
		}
		if err := writeAt(f, slot.heightOff, Int32(int32(h)).EncodeExe()); err != nil {
			return err
		}
	}
	return nil
}

func patchTexts(f patchTarget, build string) error {
	for _, off := range sortedOffsets(offsetsText) {
		if err := writeAt(f, off, encodeText(offsetsText[off], build)); err != nil {
			return err
		}
	}
	return nil
}

func patchConfigurables(f patchTarget, po mods.PatcherOptions) error {
	if po.HasGravity {
		if err := writeAt(f, configurableOffsets.gravity, Float32(float32(po.Gravity)).EncodeExe()); err != nil {
			return err
		}
	}
	if po.HasSkinsInShop {
		if err := writeAt(f, configurableOffsets.skinsInShop, Byte(byte(po.SkinsInShop)).EncodeExe()); err != nil {
			return err
		}
	}
	if po.HasBlastDamageFF {
		if err := writeAt(f, configurableOffsets.blastDamageFF, Bool(po.BlastDamageFF).EncodeExe()); err != nil {
			return err
		}
	}
	return nil
}

func sortedOffsets[V any](table map[int64]V) []int64 {
	out := make([]int64, 0, len(table))
	for off := range table {
		out = append(out, off)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AiClashCoeff derives the config.cfg clash coefficient from gravity,
// formatted to four fractional digits.
func AiClashCoeff(gravity float64) string {
	return fmt.Sprintf("%.4f", 0.001/(gravity/DefaultGravity))
}

// patchConfigCfg overlays the mod's config_options attributes onto
// data/config.cfg. Returns the path referenced by pathToGlobProps, when
// present.
func patchConfigCfg(gameRoot string, configOptions map[string]string) (string, error) {
	cfgPath := filepath.Join(gameRoot, "data", "config.cfg")
	root, err := gamexml.Load(cfgPath)
	if err != nil {
		return "", err
	}
	for _, key := range sortedKeys(configOptions) {
		root.SetAttr(key, configOptions[key])
	}
	globProps, _ := root.Attr("pathToGlobProps")
	if err := gamexml.Save(cfgPath, root); err != nil {
		return "", err
	}
	return globProps, nil
}

// patchClashCoeff writes the gravity-derived ai_clash_coeff into
// config.cfg. Only patch-bearing installs run this; an add-on leaves the
// coefficient derived from the installed patch's gravity in place.
func patchClashCoeff(gameRoot string, gravity float64) error {
	cfgPath := filepath.Join(gameRoot, "data", "config.cfg")
	root, err := gamexml.Load(cfgPath)
	if err != nil {
		return err
	}
	root.SetAttr("ai_clash_coeff", AiClashCoeff(gravity))
	return gamexml.Save(cfgPath, root)
}

// physicsStepTime values for the globalprops Physics element.
const (
	physicsStepEnabled  = "0.0166"
	physicsStepDisabled = "0.033"
)

// patchGlobalProps sets Physics/@PhysicStepTime in the globalprops file
// referenced from config.cfg. Game files spell the path with backslashes.
func patchGlobalProps(gameRoot, relPath string, highFPS bool) error {
	rel := strings.ReplaceAll(relPath, `\`, "/")
	path := filepath.Join(gameRoot, filepath.FromSlash(rel))
	root, err := gamexml.Load(path)
	if err != nil {
		return err
	}
	physics := root.Child("Physics")
	if physics == nil {
		return fmt.Errorf("%s: no Physics element", path)
	}
	step := physicsStepDisabled
	if highFPS {
		step = physicsStepEnabled
	}
	physics.SetAttr("PhysicStepTime", step)
	return gamexml.Save(path, root)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// openRW opens a file for in-place patching.
func openRW(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
