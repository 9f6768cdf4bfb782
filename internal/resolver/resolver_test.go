package resolver_test

import (
	"testing"

	"github.com/blackwell-systems/commodctl/internal/game"
	"github.com/blackwell-systems/commodctl/internal/mods"
	"github.com/blackwell-systems/commodctl/internal/modver"
	"github.com/blackwell-systems/commodctl/internal/resolver"
)

// newMod builds a minimal valid mod and applies overrides on top.
func newMod(t *testing.T, overrides map[string]any) *mods.Mod {
	t.Helper()
	doc := map[string]any{
		"name":                        "test_mod",
		"display_name":                "Test Mod",
		"version":                     "1.0.0",
		"build":                       "aaa111",
		"description":                 "d",
		"authors":                     "a",
		"language":                    "ru",
		"patcher_version_requirement": []any{">=1.10"},
		"prerequisites":               []any{},
	}
	for k, v := range overrides {
		doc[k] = v
	}
	m, err := mods.New(doc, "")
	if err != nil {
		t.Fatalf("building mod: %v", err)
	}
	return m
}

func cleanContext() resolver.Context {
	return resolver.Context{
		Installed:       map[string]game.Record{},
		Descriptions:    map[string]string{},
		GameInstallment: "exmachina",
		PatcherVersion:  modver.Parse("1.14.0"),
	}
}

func withInstalled(records map[string]game.Record) resolver.Context {
	ctx := cleanContext()
	ctx.Installed = records
	return ctx
}

func hasKey(diags []resolver.Diagnostic, key string) bool {
	for _, d := range diags {
		if d.Key == key {
			return true
		}
	}
	return false
}

func TestCheck_VanillaOnCleanGame(t *testing.T) {
	res := resolver.Check(newMod(t, nil), cleanContext())
	if !res.CanInstall {
		t.Fatalf("expected installable, diagnostics: %v", res.Diagnostics)
	}
	if res.Reinstall.IsReinstall {
		t.Error("fresh install should not be a reinstall")
	}
}

func TestCheck_ManagerVersionGate(t *testing.T) {
	m := newMod(t, map[string]any{"patcher_version_requirement": []any{">=1.20"}})
	res := resolver.Check(m, cleanContext())
	if res.ManagerCompatible {
		t.Error("tool 1.14 should fail >=1.20")
	}
	if res.ManagerTooNew {
		t.Error("an ordering failure is not the too-new case")
	}
	if !hasKey(res.Diagnostics, "mod_manager_version") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}
}

func TestCheck_ManagerTooNewOnExactMatch(t *testing.T) {
	m := newMod(t, map[string]any{"patcher_version_requirement": []any{"=1.20"}})
	res := resolver.Check(m, cleanContext())
	if res.ManagerCompatible || !res.ManagerTooNew {
		t.Errorf("exact requirement above the tool should flag too-new, got %+v", res)
	}
}

func TestCheck_ManagerVersionIgnoresIdentifier(t *testing.T) {
	m := newMod(t, map[string]any{"patcher_version_requirement": []any{">=1.14"}})
	ctx := cleanContext()
	ctx.PatcherVersion = modver.Parse("1.14.0-rc1")
	res := resolver.Check(m, ctx)
	if !res.ManagerCompatible {
		t.Error("identifier on the tool version should not affect gating")
	}
}

func TestCheck_InstallmentMismatch(t *testing.T) {
	m := newMod(t, map[string]any{"installment": "m113"})
	res := resolver.Check(m, cleanContext())
	if res.InstallmentCompatible || res.CanInstall {
		t.Error("m113 mod should not install on an exmachina game")
	}
	if !hasKey(res.Diagnostics, "incompatible_game_installment") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}
}

func TestCheck_PrerequisiteNotFound(t *testing.T) {
	m := newMod(t, map[string]any{
		"prerequisites": []any{map[string]any{"name": "community_remaster"}},
	})
	res := resolver.Check(m, cleanContext())
	if res.PrereqsSatisfied {
		t.Error("missing prerequisite should fail")
	}
	if !hasKey(res.Diagnostics, "prerequisite_not_found") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}
}

func TestCheck_PrerequisiteVersion(t *testing.T) {
	m := newMod(t, map[string]any{
		"prerequisites": []any{map[string]any{
			"name":     "community_remaster",
			"versions": []any{">=1.14"},
		}},
	})
	ctx := withInstalled(map[string]game.Record{
		"community_remaster": {Base: "yes", Version: "1.13"},
	})
	res := resolver.Check(m, ctx)
	if res.PrereqsSatisfied {
		t.Error("installed 1.13 should fail >=1.14")
	}
	if !hasKey(res.Diagnostics, "prerequisite_version") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}

	ctx.Installed["community_remaster"] = game.Record{Base: "yes", Version: "1.14.2"}
	if res := resolver.Check(m, ctx); !res.PrereqsSatisfied {
		t.Errorf("installed 1.14.2 should satisfy >=1.14: %v", res.Diagnostics)
	}
}

func TestCheck_PrerequisiteOptions(t *testing.T) {
	m := newMod(t, map[string]any{
		"prerequisites": []any{map[string]any{
			"name":             "big_mod",
			"optional_content": []any{"extra_maps"},
		}},
	})
	ctx := withInstalled(map[string]game.Record{
		"big_mod": {Base: "yes", Version: "2.0",
			Options: map[string]string{"extra_maps": "skip"}},
	})
	res := resolver.Check(m, ctx)
	if res.PrereqsSatisfied {
		t.Error("skipped required option should fail")
	}
	if !hasKey(res.Diagnostics, "prerequisite_options") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}

	ctx.Installed["big_mod"] = game.Record{Base: "yes", Version: "2.0",
		Options: map[string]string{"extra_maps": "yes"}}
	if res := resolver.Check(m, ctx); !res.PrereqsSatisfied {
		t.Errorf("installed option should satisfy: %v", res.Diagnostics)
	}
}

func TestCheck_CompatchModOnRemaster(t *testing.T) {
	m := newMod(t, map[string]any{
		"prerequisites": []any{map[string]any{"name": "community_patch"}},
	})
	ctx := withInstalled(map[string]game.Record{
		"community_patch":    {Base: "yes", Version: "1.14"},
		"community_remaster": {Base: "yes", Version: "1.14"},
	})
	res := resolver.Check(m, ctx)
	if res.PrereqsSatisfied {
		t.Error("patch-only mod should be rejected on a remaster game")
	}
	if !hasKey(res.Diagnostics, "compatch_mod_incompatible_with_comrem") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}

	// Accepting the remaster explicitly lifts the restriction.
	both := newMod(t, map[string]any{
		"prerequisites": []any{map[string]any{
			"name": []any{"community_patch", "community_remaster"},
		}},
	})
	if res := resolver.Check(both, ctx); !res.PrereqsSatisfied {
		t.Errorf("mod accepting both should pass: %v", res.Diagnostics)
	}
}

func TestCheck_Incompatibility(t *testing.T) {
	m := newMod(t, map[string]any{
		"incompatible": []any{map[string]any{
			"name":             "rival_mod",
			"optional_content": []any{"hard_mode"},
		}},
	})

	ctx := withInstalled(map[string]game.Record{
		"rival_mod": {Base: "yes", Version: "1.0",
			Options: map[string]string{"hard_mode": "skip"}},
	})
	if res := resolver.Check(m, ctx); !res.Compatible {
		t.Errorf("skipped conflicting option should be compatible: %v", res.Diagnostics)
	}

	ctx.Installed["rival_mod"] = game.Record{Base: "yes", Version: "1.0",
		Options: map[string]string{"hard_mode": "yes"}}
	res := resolver.Check(m, ctx)
	if res.Compatible {
		t.Error("installed conflicting option should hit")
	}
	if !hasKey(res.Diagnostics, "incompatible_mod_installed") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}
}

func TestCheck_IncompatibilityVersionScoped(t *testing.T) {
	m := newMod(t, map[string]any{
		"incompatible": []any{map[string]any{
			"name":     "rival_mod",
			"versions": []any{"<2.0"},
		}},
	})
	ctx := withInstalled(map[string]game.Record{
		"rival_mod": {Base: "yes", Version: "2.1"},
	})
	if res := resolver.Check(m, ctx); !res.Compatible {
		t.Errorf("rival 2.1 is outside <2.0, should be compatible: %v", res.Diagnostics)
	}

	ctx.Installed["rival_mod"] = game.Record{Base: "yes", Version: "1.5"}
	if res := resolver.Check(m, ctx); res.Compatible {
		t.Error("rival 1.5 inside <2.0 should conflict")
	}
}

func TestCheck_StrictRequirements(t *testing.T) {
	vanilla := newMod(t, map[string]any{"strict_requirements": true})
	ctx := withInstalled(map[string]game.Record{
		"some_mod": {Base: "yes", Version: "1.0"},
	})
	res := resolver.Check(vanilla, ctx)
	if res.PrereqsSatisfied {
		t.Error("strict vanilla mod should reject a modded game")
	}
	if !hasKey(res.Diagnostics, "strict_requirements") {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}

	dependent := newMod(t, map[string]any{
		"strict_requirements": true,
		"prerequisites":       []any{map[string]any{"name": "community_remaster"}},
	})
	okCtx := withInstalled(map[string]game.Record{
		"community_patch":    {Base: "yes", Version: "1.14"},
		"community_remaster": {Base: "yes", Version: "1.14"},
	})
	if res := resolver.Check(dependent, okCtx); !res.PrereqsSatisfied {
		t.Errorf("prerequisite closure should be tolerated: %v", res.Diagnostics)
	}
}

func TestCheckReinstall(t *testing.T) {
	installed := func(rec game.Record) resolver.Context {
		return withInstalled(map[string]game.Record{"test_mod": rec})
	}
	base := game.Record{Base: "yes", Version: "1.0.0", Build: "aaa111",
		Language: "ru", Installment: "exmachina"}

	t.Run("same version and build", func(t *testing.T) {
		v := resolver.CheckReinstall(newMod(t, nil), installed(base))
		if !v.IsReinstall || !v.CanBeReinstalled || v.Warning != resolver.WarnCanReinstall {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("newer build", func(t *testing.T) {
		m := newMod(t, map[string]any{"build": "bbb222"})
		v := resolver.CheckReinstall(m, installed(base))
		if !v.CanBeReinstalled || v.Warning != resolver.WarnCanReinstallNewBuild {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("older build", func(t *testing.T) {
		rec := base
		rec.Build = "zzz999"
		v := resolver.CheckReinstall(newMod(t, nil), installed(rec))
		if v.CanBeReinstalled || v.Warning != resolver.WarnOverNewerBuild {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("different language", func(t *testing.T) {
		rec := base
		rec.Language = "en"
		v := resolver.CheckReinstall(newMod(t, nil), installed(rec))
		if v.CanBeReinstalled || v.Warning != resolver.WarnDifferentLang {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("legacy language is tolerated", func(t *testing.T) {
		rec := base
		rec.Language = "not_specified"
		v := resolver.CheckReinstall(newMod(t, nil), installed(rec))
		if !v.CanBeReinstalled {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("other mods present", func(t *testing.T) {
		ctx := withInstalled(map[string]game.Record{
			"test_mod":  base,
			"other_mod": {Base: "yes", Version: "3.0"},
		})
		v := resolver.CheckReinstall(newMod(t, nil), ctx)
		if v.CanBeReinstalled || v.Warning != resolver.WarnOverOtherMods {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("candidate older than installed", func(t *testing.T) {
		rec := base
		rec.Version = "2.0.0"
		v := resolver.CheckReinstall(newMod(t, nil), installed(rec))
		if v.CanBeReinstalled || v.Warning != resolver.WarnOverOtherVersion {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("patch compat collapses patch digits", func(t *testing.T) {
		rec := base
		rec.Version = "1.0.1"
		m := newMod(t, map[string]any{
			"version":                   "1.0.2",
			"compatible_patch_versions": true,
		})
		v := resolver.CheckReinstall(m, installed(rec))
		if !v.CanBeReinstalled {
			t.Errorf("verdict = %+v", v)
		}

		strict := newMod(t, map[string]any{"version": "1.0.2"})
		if v := resolver.CheckReinstall(strict, installed(rec)); v.CanBeReinstalled {
			t.Errorf("without patch compat a 1.0.1 to 1.0.2 jump blocks: %+v", v)
		}
	})

	t.Run("different options block", func(t *testing.T) {
		rec := base
		rec.Options = map[string]string{"old_option": "yes"}
		m := newMod(t, map[string]any{
			"optional_content": []any{
				map[string]any{"name": "new_option", "display_name": "New"},
			},
		})
		v := resolver.CheckReinstall(m, installed(rec))
		if v.CanBeReinstalled || v.Warning != resolver.WarnDifferentOptions {
			t.Errorf("verdict = %+v", v)
		}
	})

	t.Run("same options limited without safe reinstall", func(t *testing.T) {
		rec := base
		rec.Options = map[string]string{"hard_mode": "yes"}
		m := newMod(t, map[string]any{
			"optional_content": []any{
				map[string]any{"name": "hard_mode", "display_name": "Hard"},
			},
		})
		v := resolver.CheckReinstall(m, installed(rec))
		if !v.CanBeReinstalled || v.Warning != resolver.WarnCompatOptionsLimited {
			t.Errorf("verdict = %+v", v)
		}

		safe := newMod(t, map[string]any{
			"safe_reinstall_options": true,
			"optional_content": []any{
				map[string]any{"name": "hard_mode", "display_name": "Hard"},
			},
		})
		if v := resolver.CheckReinstall(safe, installed(rec)); v.Warning != resolver.WarnCanReinstall {
			t.Errorf("safe reinstall verdict = %+v", v)
		}
	})

	t.Run("remaster over patch", func(t *testing.T) {
		m := newMod(t, map[string]any{
			"name":    "community_remaster",
			"version": "1.14",
			"build":   "aaa111",
			"optional_content": []any{
				map[string]any{"name": "hd_ui", "display_name": "HD UI"},
			},
		})
		ctx := withInstalled(map[string]game.Record{
			"community_patch": {Base: "yes", Version: "1.14", Build: "aaa111",
				Language: "ru", Installment: "exmachina"},
		})
		v := resolver.CheckReinstall(m, ctx)
		if !v.IsReinstall || !v.CanBeReinstalled {
			t.Errorf("verdict = %+v", v)
		}
	})
}

func TestCheck_ReinstallBlockedFailsVerdict(t *testing.T) {
	rec := game.Record{Base: "yes", Version: "1.0.0", Build: "aaa111",
		Language: "en", Installment: "exmachina"}
	res := resolver.Check(newMod(t, nil), withInstalled(map[string]game.Record{"test_mod": rec}))
	if res.CanInstall {
		t.Error("blocked reinstall must fail the combined verdict")
	}
	if !hasKey(res.Diagnostics, resolver.WarnDifferentLang) {
		t.Errorf("diagnostics: %v", res.Diagnostics)
	}
}
