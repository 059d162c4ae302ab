package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/store"
)

func TestMatchAdminCommandModes(t *testing.T) {
	cases := []struct {
		text  string
		mode  models.Mode
		pause bool
	}{
		{"go live", models.ModeProd, false},
		{"please switch to production", models.ModeProd, false},
		{"let's do a soft launch", models.ModeSoftLaunch, false},
		{"keep it in sandbox", models.ModeSandbox, false},
		{"pause for now", models.ModeSandbox, true},
		{"turn off the bot", models.ModeSandbox, true},
	}
	for _, tc := range cases {
		cmd, ok := MatchAdminCommand(tc.text)
		if !ok {
			t.Errorf("%q: expected a match", tc.text)
			continue
		}
		if cmd.Kind != CommandMode {
			t.Errorf("%q: expected mode command, got kind %d", tc.text, cmd.Kind)
			continue
		}
		if cmd.Mode != tc.mode || cmd.Pause != tc.pause {
			t.Errorf("%q: got mode=%s pause=%v, want mode=%s pause=%v", tc.text, cmd.Mode, cmd.Pause, tc.mode, tc.pause)
		}
	}
}

func TestMatchAdminCommandSetFields(t *testing.T) {
	cases := []struct {
		text  string
		field string
		value string
	}{
		{"set brand: Acme Photo", "brand", "Acme Photo"},
		{"set brand - Acme Photo", "brand", "Acme Photo"},
		{"Set price: £200 per session", "package", "£200 per session"},
		{"set package: mini shoot, 5 photos", "package", "mini shoot, 5 photos"},
		{"set policy: 24h reschedule", "policy", "24h reschedule"},
		{"set availability: weekdays after 6pm", "availability", "weekdays after 6pm"},
	}
	for _, tc := range cases {
		cmd, ok := MatchAdminCommand(tc.text)
		if !ok {
			t.Errorf("%q: expected a match", tc.text)
			continue
		}
		if cmd.Kind != CommandSet || cmd.Field != tc.field || cmd.Value != tc.value {
			t.Errorf("%q: got kind=%d field=%q value=%q, want field=%q value=%q", tc.text, cmd.Kind, cmd.Field, cmd.Value, tc.field, tc.value)
		}
	}
}

func TestMatchAdminCommandStatus(t *testing.T) {
	for _, text := range []string{"what's my status", "what is my status", "what is status", "show status", "show the status"} {
		cmd, ok := MatchAdminCommand(text)
		if !ok || cmd.Kind != CommandStatus {
			t.Errorf("%q: expected status command, ok=%v kind=%d", text, ok, cmd.Kind)
		}
	}
}

func TestMatchAdminCommandNoMatch(t *testing.T) {
	for _, text := range []string{"", "hello", "how much is a shoot?", "settle down"} {
		if _, ok := MatchAdminCommand(text); ok {
			t.Errorf("%q: expected no match", text)
		}
	}
}

func TestExecuteModeSwitchLinksInstalledFlag(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAdminInterpreter(st, NewRoleResolver(st))
	ctx := context.Background()

	cmd, ok := MatchAdminCommand("go live")
	if !ok {
		t.Fatal("expected go live to match")
	}
	if _, err := a.Execute(ctx, "admin1", cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	cfg, err := st.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if !cfg.Installed || cfg.Mode != models.ModeProd {
		t.Errorf("expected installed prod, got installed=%v mode=%s", cfg.Installed, cfg.Mode)
	}
	if !cfg.IsAdmin("admin1") {
		t.Error("expected issuing sender to be promoted to admin")
	}

	cmd, _ = MatchAdminCommand("pause")
	if _, err := a.Execute(ctx, "admin1", cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	cfg, err = st.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Installed || cfg.Mode != models.ModeSandbox {
		t.Errorf("expected sandbox after pause, got installed=%v mode=%s", cfg.Installed, cfg.Mode)
	}
}

func TestExecuteModeSwitchClearsSession(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAdminInterpreter(st, NewRoleResolver(st))
	if err := st.SaveSession(models.OnboardingSession{SenderID: "owner1", Step: models.StepConfirm}); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}

	cmd, _ := MatchAdminCommand("go live")
	if _, err := a.Execute(context.Background(), "owner1", cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	session, err := st.GetSession("owner1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session != nil {
		t.Error("expected mode switch to delete the onboarding session")
	}
}

func TestExecuteSetFieldVerbatim(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAdminInterpreter(st, NewRoleResolver(st))

	cmd, ok := MatchAdminCommand("set brand: Acme PHOTO Studio")
	if !ok {
		t.Fatal("expected set brand to match")
	}
	reply, err := a.Execute(context.Background(), "admin1", cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if reply != "Saved brand." {
		t.Errorf("unexpected ack %q", reply)
	}

	cfg, err := st.GetConfig()
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.Brand != "Acme PHOTO Studio" {
		t.Errorf("expected verbatim value with casing kept, got %q", cfg.Brand)
	}
}

func TestExecuteStatusSnapshot(t *testing.T) {
	st := store.NewInMemoryStore()
	a := NewAdminInterpreter(st, NewRoleResolver(st))
	ctx := context.Background()

	cmd, _ := MatchAdminCommand("set brand: Acme")
	if _, err := a.Execute(ctx, "admin1", cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	cmd, ok := MatchAdminCommand("show status")
	if !ok {
		t.Fatal("expected status to match")
	}
	reply, err := a.Execute(ctx, "admin1", cmd)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, want := range []string{"Brand: Acme", "Installed: no", "Mode: sandbox", "Package: default"} {
		if !strings.Contains(reply, want) {
			t.Errorf("status snapshot missing %q:\n%s", want, reply)
		}
	}
}

func TestExecuteRoleOverrideAndReset(t *testing.T) {
	st := store.NewInMemoryStore()
	resolver := NewRoleResolver(st)
	a := NewAdminInterpreter(st, resolver)
	ctx := context.Background()

	cmd, ok := MatchAdminCommand("treat me as customer")
	if !ok {
		t.Fatal("expected role override to match")
	}
	if _, err := a.Execute(ctx, "u1", cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	role, err := resolver.Resolve(ctx, "u1", "set up my business", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleCustomer {
		t.Errorf("expected overridden customer role, got %s", role)
	}

	cmd, ok = MatchAdminCommand("forget my role")
	if !ok {
		t.Fatal("expected role reset to match")
	}
	if _, err := a.Execute(ctx, "u1", cmd); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	role, err = resolver.Resolve(ctx, "u1", "set up my business", false)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if role != models.RoleOwner {
		t.Errorf("expected fresh owner classification after reset, got %s", role)
	}
}
