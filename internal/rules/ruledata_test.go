package rules

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/oscap-tools/hardenplan/internal/models"
)

// recordingLogger keeps warn lines
type recordingLogger struct {
	warnings []string
}

func (r *recordingLogger) Debug(component, msg string, fields ...any) {}
func (r *recordingLogger) Info(component, msg string, fields ...any)  {}
func (r *recordingLogger) Warn(component, msg string, fields ...any) {
	r.warnings = append(r.warnings, msg)
}
func (r *recordingLogger) Error(component, msg string, fields ...any)                     {}
func (r *recordingLogger) Event(ctx context.Context, event string, fields map[string]any) {}
func (r *recordingLogger) Close() error                                                   { return nil }

func TestNewRule_Artificial(t *testing.T) {
	d := rulesFor(t,
		"  part /tmp --mountoptions=nodev,noauto",
		"part /var/log  ",
		" passwd   --minlen=14 ",
		"package --add=iptables",
		" package --add=firewalld --remove=telnet",
		"package --remove=rlogin --remove=sshd",
		"bootloader --passwd",
	)

	tmp, ok := d.PartRules().Get("/tmp")
	if !ok || !tmp.HasMountOption("nodev") || !tmp.HasMountOption("noauto") {
		t.Errorf("/tmp rule = %v", tmp)
	}
	varLog, ok := d.PartRules().Get("/var/log")
	if !ok || len(varLog.MountOptions()) != 0 {
		t.Errorf("/var/log rule = %v", varLog)
	}
	if d.PasswdRules().MinLen() != 14 {
		t.Errorf("MinLen() = %d", d.PasswdRules().MinLen())
	}
	if got := strings.Join(d.PackageRules().AddPkgs(), ","); got != "iptables,firewalld" {
		t.Errorf("AddPkgs() = %s", got)
	}
	if got := strings.Join(d.PackageRules().RemovePkgs(), ","); got != "telnet,rlogin,sshd" {
		t.Errorf("RemovePkgs() = %s", got)
	}
	if !d.BootloaderRules().PasswordRequired() {
		t.Error("bootloader password not required")
	}
}

func TestNewRule_RealOutput(t *testing.T) {
	d := NewRuleData()
	output := "\n    part /tmp\n\n    part /tmp --mountoptions=nodev\n    "
	for _, line := range strings.Split(output, "\n") {
		if err := d.NewRule(line); err != nil {
			t.Fatalf("NewRule(%q) error = %v", line, err)
		}
	}
	if got := d.PartRules().String(); got != "part /tmp --mountoptions=nodev" {
		t.Errorf("String() = %q", got)
	}
}

func TestNewRule_UnknownKeyword(t *testing.T) {
	log := &recordingLogger{}
	d := NewRuleData(WithLogger(log))

	before := d.String()
	err := d.NewRule("firewall --enabled")
	if !errors.Is(err, ErrUnknownKeyword) {
		t.Fatalf("error = %v, want ErrUnknownKeyword", err)
	}
	if !strings.Contains(err.Error(), `"firewall"`) {
		t.Errorf("error %q should name the keyword", err)
	}
	if d.String() != before {
		t.Error("unknown keyword changed stored rules")
	}
	if len(log.warnings) != 1 {
		t.Errorf("warnings = %v", log.warnings)
	}
}

func TestNewRule_Malformed(t *testing.T) {
	for _, line := range []string{
		"part",
		"part /tmp /var",
		"part /tmp --noexec",
		"passwd --minlen=abc",
		"passwd --minlen=-3",
		"passwd /root --minlen=8",
		"bootloader --passwd=yes --timeout=5",
		`part "/tmp`,
	} {
		d := rulesFor(t, "part /home --mountoptions=nodev")
		err := d.NewRule(line)

		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("NewRule(%q) error = %v, want *ParseError", line, err)
		}
		if got := d.String(); got != "part /home --mountoptions=nodev" {
			t.Errorf("NewRule(%q) changed rules to %q", line, got)
		}
	}
}

func TestLoadRules(t *testing.T) {
	input := strings.Join([]string{
		"part /tmp",
		"firewall --enabled",
		"part",
		"",
		"part /home --mountoptions=nodev",
		"passwd --minlen=8",
	}, "\n")

	d := NewRuleData()
	err := d.LoadRules(strings.NewReader(input))
	if err == nil {
		t.Fatal("expected joined error")
	}
	if !errors.Is(err, ErrUnknownKeyword) {
		t.Errorf("error should wrap ErrUnknownKeyword: %v", err)
	}
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("error should wrap *ParseError: %v", err)
	}
	if !strings.Contains(err.Error(), "line 2:") || !strings.Contains(err.Error(), "line 3:") {
		t.Errorf("error should carry line numbers: %v", err)
	}

	want := "part /tmp\npart /home --mountoptions=nodev\npasswd --minlen=8"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLoadRules_Clean(t *testing.T) {
	d := NewRuleData()
	if err := d.LoadRules(strings.NewReader("part /tmp\n\nbootloader --passwd\n")); err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if got := d.String(); got != "part /tmp\nbootloader --passwd" {
		t.Errorf("String() = %q", got)
	}
}

func TestEvalRules_VariousRulesAllFail(t *testing.T) {
	d := rulesFor(t, "part /tmp", "part /", "passwd --minlen=14", "package --add=firewalld")

	msgs := d.EvalRules(newFakePlan(), false)
	if len(msgs) != 4 {
		t.Fatalf("messages = %v", msgs)
	}

	wantKinds := []models.MessageKind{models.MessageFatal, models.MessageFatal, models.MessageWarning, models.MessageInfo}
	for i, m := range msgs {
		if m.Kind != wantKinds[i] {
			t.Errorf("message %d kind = %v, want %v", i, m.Kind, wantKinds[i])
		}
	}
}

func TestEvalRules_Empty(t *testing.T) {
	d := NewRuleData()
	if msgs := d.EvalRules(newFakePlan(), false); len(msgs) != 0 {
		t.Errorf("messages = %v", msgs)
	}
	if d.String() != "" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestRevertChanges_RestoresPlan(t *testing.T) {
	d := rulesFor(t,
		"part /tmp --mountoptions=nodev,nosuid",
		"passwd --minlen=10",
		"package --add=aide --remove=telnet",
		"bootloader --passwd",
	)
	plan := newFakePlan()
	plan.mounts["/tmp"] = "defaults"
	plan.root = models.RootPassword{Set: true, Value: "long enough password"}
	plan.policy = models.PasswordPolicy{MinLen: 6}
	plan.packages = []string{"vim"}

	first := d.EvalRules(plan, false)
	d.RevertChanges(plan)

	if plan.mounts["/tmp"] != "defaults" {
		t.Errorf("mounts = %v", plan.mounts)
	}
	if plan.policy != (models.PasswordPolicy{MinLen: 6}) {
		t.Errorf("policy = %+v", plan.policy)
	}
	if strings.Join(plan.packages, ",") != "vim" || len(plan.excluded) != 0 {
		t.Errorf("packages = %v, excluded = %v", plan.packages, plan.excluded)
	}

	// a fresh pass after revert reports the same intent
	again := d.EvalRules(plan, false)
	if len(again) != len(first) {
		t.Errorf("first = %v, again = %v", first, again)
	}
}

func TestLoadRules_LongLine(t *testing.T) {
	long := "package --add=" + strings.Repeat("a", 70000)
	input := strings.Join([]string{
		"part /tmp",
		long,
		"part /home --mountoptions=nodev",
		"passwd --minlen=8",
	}, "\n")

	d := NewRuleData()
	if err := d.LoadRules(strings.NewReader(input)); err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}
	if got := d.PackageRules().AddPkgs(); len(got) != 1 || len(got[0]) != 70000 {
		t.Errorf("long package not loaded: %d packages", len(got))
	}
	if got := d.PartRules().String(); got != "part /tmp\npart /home --mountoptions=nodev" {
		t.Errorf("PartRules().String() = %q", got)
	}
	if d.PasswdRules().MinLen() != 8 {
		t.Errorf("MinLen() = %d", d.PasswdRules().MinLen())
	}
}

func TestLoadRules_OversizedLineSkipped(t *testing.T) {
	oversized := "package --add=" + strings.Repeat("b", maxRuleLength)
	input := "part /tmp\r\n" + oversized + "\npart /home --mountoptions=nodev\npasswd --minlen=8"

	d := NewRuleData()
	err := d.LoadRules(strings.NewReader(input))
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if !strings.Contains(err.Error(), "line 2:") {
		t.Errorf("error should name line 2: %v", err)
	}
	if len(err.Error()) > 512 {
		t.Errorf("error carries the whole line: %d bytes", len(err.Error()))
	}

	want := "part /tmp\npart /home --mountoptions=nodev\npasswd --minlen=8"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestString_RoundTripsQuotedArguments(t *testing.T) {
	d := rulesFor(t,
		`part "/srv/my data" --mountoptions=nodev`,
		`part '/mnt/it"s'`,
		`part "/opt/back\\slash" --mountoptions="nosuid,x-systemd.requires=/a b"`,
		`package --add="my pkg" --remove=telnet`,
	)
	text := d.String()

	again := NewRuleData()
	if err := again.LoadRules(strings.NewReader(text)); err != nil {
		t.Fatalf("reloading %q: %v", text, err)
	}
	if got := again.String(); got != text {
		t.Errorf("round trip = %q, want %q", got, text)
	}

	rule, ok := again.PartRules().Get("/srv/my data")
	if !ok || !rule.HasMountOption("nodev") {
		t.Errorf("/srv/my data rule = %v", rule)
	}
	if !again.PartRules().Contains(`/mnt/it"s`) || !again.PartRules().Contains(`/opt/back\slash`) {
		t.Errorf("part rules = %q", again.PartRules().String())
	}
	rule, _ = again.PartRules().Get(`/opt/back\slash`)
	if rule == nil || !rule.HasMountOption("x-systemd.requires=/a b") {
		t.Errorf("mount options = %v", rule)
	}
	if got := again.PackageRules().AddPkgs(); len(got) != 1 || got[0] != "my pkg" {
		t.Errorf("AddPkgs() = %v", got)
	}
}
