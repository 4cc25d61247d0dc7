package rules

import (
	"slices"
	"strings"
	"testing"

	"github.com/oscap-tools/hardenplan/internal/models"
)

func rulesFor(t *testing.T, lines ...string) *RuleData {
	t.Helper()
	d := NewRuleData()
	for _, line := range lines {
		if err := d.NewRule(line); err != nil {
			t.Fatalf("NewRule(%q) error = %v", line, err)
		}
	}
	return d
}

func TestPartRules_MapOperations(t *testing.T) {
	rules := NewPartRules()
	rules.Set("/tmp", NewPartRule("/tmp"))

	if rules.Len() != 1 || !rules.Contains("/tmp") {
		t.Fatalf("Len() = %d, Contains(/tmp) = %v", rules.Len(), rules.Contains("/tmp"))
	}
	rule, ok := rules.Get("/tmp")
	if !ok || rule.Path() != "/tmp" {
		t.Errorf("Get(/tmp) = %v, %v", rule, ok)
	}

	replacement := NewPartRule("/tmp")
	replacement.AddMountOptions("nodev")
	rules.Set("/tmp", replacement)
	if got, _ := rules.Get("/tmp"); got != replacement {
		t.Error("Set should replace the rule")
	}

	rules.Delete("/tmp")
	if rules.Contains("/tmp") || rules.Len() != 0 {
		t.Error("Delete(/tmp) did not remove the rule")
	}
	if _, ok := rules.Get("/tmp"); ok {
		t.Error("Get after Delete should fail")
	}
}

func TestPartRules_MergeAndString(t *testing.T) {
	d := rulesFor(t, "part /tmp", "", "part /tmp --mountoptions=nodev", "part /var/log", "part /tmp --mountoptions=nosuid,nodev")

	if got := d.PartRules().String(); got != "part /tmp --mountoptions=nodev,nosuid\npart /var/log" {
		t.Errorf("String() = %q", got)
	}

	rule, _ := d.PartRules().Get("/tmp")
	if !slices.Equal(rule.MountOptions(), []string{"nodev", "nosuid"}) {
		t.Errorf("MountOptions() = %v", rule.MountOptions())
	}
	if !rule.HasMountOption("nosuid") || rule.HasMountOption("noexec") {
		t.Error("HasMountOption mismatch")
	}
}

func TestPartRules_ExistingMountPoints(t *testing.T) {
	d := rulesFor(t, "part /tmp", "part /")
	plan := newFakePlan()
	plan.mounts["/"] = "defaults"
	plan.mounts["/tmp"] = "defaults"

	if msgs := d.EvalRules(plan, false); len(msgs) != 0 {
		t.Errorf("expected no messages, got %v", msgs)
	}
	if plan.mounts["/"] != "defaults" || plan.mounts["/tmp"] != "defaults" {
		t.Errorf("mount options changed: %v", plan.mounts)
	}
}

func TestPartRules_MissingMountPoint(t *testing.T) {
	d := rulesFor(t, "part /tmp", "part /")
	plan := newFakePlan()
	plan.mounts["/tmp"] = "defaults"

	msgs := d.EvalRules(plan, false)
	if len(msgs) != 1 || msgs[0].Kind != models.MessageFatal {
		t.Fatalf("expected one fatal message, got %v", msgs)
	}
	if !strings.HasPrefix(msgs[0].Text, "/ must be on a separate partition") {
		t.Errorf("unexpected text %q", msgs[0].Text)
	}
}

func TestPartRules_AddMountOptions(t *testing.T) {
	tests := []struct {
		name       string
		reportOnly bool
		tmp        string
		root       string
	}{
		{"enforce", false, "defaults,nodev", "defaults,noauto"},
		{"report only", true, "defaults", "defaults"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rulesFor(t, "part /tmp --mountoptions=nodev", "part / --mountoptions=noauto")
			plan := newFakePlan()
			plan.mounts["/"] = "defaults"
			plan.mounts["/tmp"] = "defaults"

			msgs := d.EvalRules(plan, tt.reportOnly)
			want := []models.Message{
				{Kind: models.MessageInfo, Text: "mount option 'nodev' added for the mount point /tmp"},
				{Kind: models.MessageInfo, Text: "mount option 'noauto' added for the mount point /"},
			}
			if !slices.Equal(msgs, want) {
				t.Errorf("messages = %v, want %v", msgs, want)
			}
			if plan.mounts["/tmp"] != tt.tmp || plan.mounts["/"] != tt.root {
				t.Errorf("mounts = %v", plan.mounts)
			}

			rule, _ := d.PartRules().Get("/tmp")
			if _, captured := rule.OriginalOptions(); captured == tt.reportOnly {
				t.Errorf("captured = %v with reportOnly = %v", captured, tt.reportOnly)
			}
		})
	}
}

func TestPartRules_RepeatedPassesAreIdempotent(t *testing.T) {
	d := rulesFor(t, "part /tmp --mountoptions=nodev", "part / --mountoptions=noauto")
	plan := newFakePlan()
	plan.mounts["/"] = "defaults"
	plan.mounts["/tmp"] = "defaults"

	first := d.EvalRules(plan, false)
	second := d.EvalRules(plan, false)

	if !slices.Equal(first, second) || len(second) != 2 {
		t.Errorf("first = %v, second = %v", first, second)
	}
	if plan.mounts["/tmp"] != "defaults,nodev" || plan.mounts["/"] != "defaults,noauto" {
		t.Errorf("options duplicated: %v", plan.mounts)
	}
}

func TestPartRules_NoDuplicates(t *testing.T) {
	d := rulesFor(t, "part /tmp --mountoptions=nodev")
	plan := newFakePlan()
	plan.mounts["/tmp"] = "defaults,nodev"

	if msgs := d.EvalRules(plan, false); len(msgs) != 0 {
		t.Errorf("expected no messages, got %v", msgs)
	}
	if plan.mounts["/tmp"] != "defaults,nodev" {
		t.Errorf("options = %q", plan.mounts["/tmp"])
	}
}

func TestPartRules_OptionPrefixIsNotAMatch(t *testing.T) {
	d := rulesFor(t, "part /tmp --mountoptions=nodev", "part / --mountoptions=noauto")
	plan := newFakePlan()
	plan.mounts["/"] = "defaults"
	plan.mounts["/tmp"] = "defaults,nodevice"

	msgs := d.EvalRules(plan, false)
	if len(msgs) != 2 || countKind(msgs, models.MessageInfo) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	if plan.mounts["/tmp"] != "defaults,nodevice,nodev" {
		t.Errorf("options = %q", plan.mounts["/tmp"])
	}
}

func TestPartRules_MissingAndExisting(t *testing.T) {
	d := rulesFor(t, "part /tmp --mountoptions=nodev", "part / --mountoptions=noauto")
	plan := newFakePlan()
	plan.mounts["/"] = "defaults"

	msgs := d.EvalRules(plan, false)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
	for _, m := range msgs {
		switch m.Kind {
		case models.MessageFatal:
			if !strings.Contains(m.Text, "/tmp") || strings.Contains(m.Text, "'nodev'") {
				t.Errorf("fatal text %q", m.Text)
			}
		case models.MessageInfo:
			if !strings.Contains(m.Text, "'noauto'") {
				t.Errorf("info text %q", m.Text)
			}
		default:
			t.Errorf("unexpected message %v", m)
		}
	}
}

func TestPartRules_EmptyOptionString(t *testing.T) {
	d := rulesFor(t, "part /home --mountoptions=nodev")
	plan := newFakePlan()
	plan.mounts["/home"] = ""

	d.EvalRules(plan, false)
	if plan.mounts["/home"] != "nodev" {
		t.Errorf("options = %q", plan.mounts["/home"])
	}
}

func TestPartRules_Revert(t *testing.T) {
	d := rulesFor(t, "part /tmp --mountoptions=nodev")
	plan := newFakePlan()
	plan.mounts["/tmp"] = "defaults"

	for i := 0; i < 2; i++ {
		msgs := d.EvalRules(plan, false)
		if len(msgs) != 1 || plan.mounts["/tmp"] != "defaults,nodev" {
			t.Fatalf("cycle %d: messages = %v, options = %q", i, msgs, plan.mounts["/tmp"])
		}

		d.RevertChanges(plan)
		if plan.mounts["/tmp"] != "defaults" {
			t.Fatalf("cycle %d: reverted options = %q", i, plan.mounts["/tmp"])
		}
	}
}

func TestPartRules_RevertNonexistent(t *testing.T) {
	d := rulesFor(t, "part /tmp --mountoptions=nodev")
	plan := newFakePlan()

	if msgs := d.EvalRules(plan, false); len(msgs) != 1 {
		t.Fatalf("messages = %v", msgs)
	}
	d.RevertChanges(plan)
	if len(plan.mounts) != 0 {
		t.Errorf("mounts = %v", plan.mounts)
	}
}
