package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/DMPipe/internal/models"
	"github.com/BTreeMap/DMPipe/internal/store"
)

// CommandKind enumerates the admin command families.
type CommandKind int

const (
	// CommandMode switches the operating mode (go live, soft launch, sandbox, pause).
	CommandMode CommandKind = iota
	// CommandSet assigns one business config field verbatim.
	CommandSet
	// CommandStatus asks for a config snapshot.
	CommandStatus
	// CommandRoleOverride forces a role for the sender.
	CommandRoleOverride
	// CommandRoleReset clears the sender's sticky role memory.
	CommandRoleReset
)

// AdminCommand is one parsed natural-language admin instruction.
type AdminCommand struct {
	Kind  CommandKind
	Mode  models.Mode // CommandMode
	Pause bool        // CommandMode: pause phrasing gets its own ack
	Field string      // CommandSet: config field name
	Value string      // CommandSet: verbatim value
	Role  models.Role // CommandRoleOverride
}

// adminRules maps phrasings to commands. Order is precedence: mode switches
// first, then field assignments, then status, then role overrides. First
// match wins.
var adminRules = []struct {
	pattern *regexp.Regexp
	parse   func(m []string) AdminCommand
}{
	{
		regexp.MustCompile(`(?i)(go live|start in production|switch to production)`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandMode, Mode: models.ModeProd} },
	},
	{
		regexp.MustCompile(`(?i)(pause|stop for now|turn off|disable)`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandMode, Mode: models.ModeSandbox, Pause: true} },
	},
	{
		regexp.MustCompile(`(?i)(soft launch|limited interactions)`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandMode, Mode: models.ModeSoftLaunch} },
	},
	{
		regexp.MustCompile(`(?i)\bsandbox\b`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandMode, Mode: models.ModeSandbox} },
	},
	{
		regexp.MustCompile(`(?i)^set\s+brand\s*[:\-]\s*(.+)$`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandSet, Field: "brand", Value: m[1]} },
	},
	{
		regexp.MustCompile(`(?i)^set\s+(?:price|package)\s*[:\-]\s*(.+)$`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandSet, Field: "package", Value: m[1]} },
	},
	{
		regexp.MustCompile(`(?i)^set\s+policy\s*[:\-]\s*(.+)$`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandSet, Field: "policy", Value: m[1]} },
	},
	{
		regexp.MustCompile(`(?i)^set\s+availability\s*[:\-]\s*(.+)$`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandSet, Field: "availability", Value: m[1]} },
	},
	{
		regexp.MustCompile(`(?i)(what(('|\x{2019})?s|\s+is)|show)\s+(my\s+|the\s+)?status`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandStatus} },
	},
	{
		regexp.MustCompile(`(?i)^treat\s+me\s+as\s+(owner|customer)\b`),
		func(m []string) AdminCommand {
			return AdminCommand{Kind: CommandRoleOverride, Role: models.Role(strings.ToLower(m[1]))}
		},
	},
	{
		regexp.MustCompile(`(?i)^(reset|forget)\s+my\s+role\b`),
		func(m []string) AdminCommand { return AdminCommand{Kind: CommandRoleReset} },
	},
}

// MatchAdminCommand parses text against the admin rule table. Matching is
// case-insensitive but captured values keep their original casing.
func MatchAdminCommand(text string) (AdminCommand, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return AdminCommand{}, false
	}
	for _, rule := range adminRules {
		if m := rule.pattern.FindStringSubmatch(trimmed); m != nil {
			cmd := rule.parse(m)
			if cmd.Kind == CommandSet {
				cmd.Value = strings.TrimSpace(cmd.Value)
			}
			return cmd, true
		}
	}
	return AdminCommand{}, false
}

// AdminInterpreter executes parsed admin commands against the store. Any
// sender who issues a recognized command is promoted to admin on the spot;
// admin rights are granted by phrasing, not by a separate auth channel.
type AdminInterpreter struct {
	store    store.Store
	resolver *RoleResolver
}

// NewAdminInterpreter creates an interpreter over the given store and resolver.
func NewAdminInterpreter(st store.Store, resolver *RoleResolver) *AdminInterpreter {
	return &AdminInterpreter{store: st, resolver: resolver}
}

// Execute applies one command and returns the acknowledgement text.
func (a *AdminInterpreter) Execute(ctx context.Context, senderID string, cmd AdminCommand) (string, error) {
	cfg, err := a.store.GetConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsAdmin(senderID) {
		cfg.AddAdmin(senderID)
		slog.Info("AdminInterpreter promoted sender to admin", "sender_id", senderID)
	}

	var reply string
	switch cmd.Kind {
	case CommandMode:
		cfg.SetMode(cmd.Mode)
		// A mode switch is also a terminal answer for an in-flight wizard
		// ("go live" at the confirm step); the session must not linger and
		// swallow the sender's next message.
		if err := a.store.DeleteSession(senderID); err != nil {
			return "", fmt.Errorf("failed to clear onboarding session for %s: %w", senderID, err)
		}
		reply = modeAck(cmd)
		slog.Info("AdminInterpreter mode switched", "sender_id", senderID, "mode", cmd.Mode, "installed", cfg.Installed)
	case CommandSet:
		switch cmd.Field {
		case "brand":
			cfg.Brand = cmd.Value
		case "package":
			cfg.PackageText = cmd.Value
		case "policy":
			cfg.PolicyText = cmd.Value
		case "availability":
			cfg.AvailabilityText = cmd.Value
		}
		reply = fmt.Sprintf("Saved %s.", cmd.Field)
		slog.Info("AdminInterpreter config field updated", "sender_id", senderID, "field", cmd.Field)
	case CommandStatus:
		reply = statusSnapshot(cfg)
	case CommandRoleOverride:
		if err := a.resolver.Override(ctx, senderID, cmd.Role); err != nil {
			return "", err
		}
		reply = fmt.Sprintf("Okay, treating you as %s from now on.", cmd.Role)
	case CommandRoleReset:
		if err := a.resolver.Clear(ctx, senderID); err != nil {
			return "", err
		}
		reply = "Role memory cleared. Your next message will be classified fresh."
	default:
		return "", fmt.Errorf("unknown admin command kind %d", cmd.Kind)
	}

	if err := a.store.SaveConfig(cfg); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}
	return reply, nil
}

func modeAck(cmd AdminCommand) string {
	if cmd.Pause {
		return "Paused. I'll stop answering customers until you say \"Go live\" again."
	}
	switch cmd.Mode {
	case models.ModeProd:
		return ackLive
	case models.ModeSoftLaunch:
		return "Soft launch on. I'll answer customers while you keep an eye on things."
	default:
		return ackSandbox
	}
}

func statusSnapshot(cfg models.BusinessConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Brand: %s\n", orDash(cfg.Brand))
	fmt.Fprintf(&b, "Installed: %s\n", yesNo(cfg.Installed))
	fmt.Fprintf(&b, "Mode: %s\n", cfg.Mode)
	fmt.Fprintf(&b, "Package: %s\n", setOrDefault(cfg.PackageText))
	fmt.Fprintf(&b, "Policy: %s\n", setOrDefault(cfg.PolicyText))
	fmt.Fprintf(&b, "Availability: %s", setOrDefault(cfg.AvailabilityText))
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func setOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return "default"
	}
	return "set"
}
