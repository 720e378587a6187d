package ai

import (
	"fmt"
	"strings"
	"time"

	// Embedded tzdata keeps IANA lookups working on hosts without a
	// zoneinfo database.
	_ "time/tzdata"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"sonna/internal/model"
)

// DefaultTimezone used when the profile carries no timezone preference
// or the configured one cannot be loaded.
const DefaultTimezone = "America/Toronto"

// historyWindow maximum number of prior turns included in the prompt.
const historyWindow = 5

// preferenceFields maps profile preference keys to prompt labels, in
// render order.
var preferenceFields = []struct {
	key   string
	label string
}{
	{"interests", "Interests"},
	{"favourite foods", "Favorite Foods"},
	{"goals", "Goals"},
	{"daily routine", "Daily Routine"},
}

// buildPreamble renders the system preamble for one dialogue turn:
// persona, the wall clock already resolved to the user's location, and
// the profile summary.
func buildPreamble(now time.Time, prefs map[string]any) string {
	var b strings.Builder
	b.WriteString("You are Sonna, an intelligent and caring AI voice assistant.\n\n")
	b.WriteString("Global Knowledge (Current Real-Time Information):\n")
	fmt.Fprintf(&b, "- Date: %s (%s)\n", now.Format("Monday, January 02, 2006"), now.Format("Monday"))
	fmt.Fprintf(&b, "- Time: %s\n", now.Format("03:04 PM"))
	b.WriteString("- Location: Toronto, Ontario, Canada\n")
	fmt.Fprintf(&b, "- Year: %d\n\n", now.Year())
	b.WriteString("User-Specific Context:\n")
	b.WriteString(formatPreferences(prefs))
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Use the EXACT date and time from Global Knowledge when answering date/time questions\n")
	b.WriteString("- Use the user's interests, goals, and routines to personalize responses\n")
	b.WriteString("- Reference their preferences naturally when relevant\n")
	b.WriteString("- Be concise and natural for voice conversation (under 2 sentences when possible)\n")
	b.WriteString("- Be warm, helpful, and conversational")
	return b.String()
}

// formatPreferences renders the known profile preference lists as
// prompt bullet lines. Unknown keys and non-list values are ignored.
func formatPreferences(prefs map[string]any) string {
	var lines []string
	for _, f := range preferenceFields {
		joined, ok := joinList(prefs[f.key])
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", f.label, joined))
	}
	if len(lines) == 0 {
		return "None specified"
	}
	return strings.Join(lines, "\n")
}

// joinList flattens a list preference into "a, b, c" form. Mongo
// decodes arrays as primitive.A, hand-built profiles may carry
// []string or []any; all are accepted. Empty lists and scalars are
// skipped.
func joinList(v any) (string, bool) {
	switch list := v.(type) {
	case []string:
		if len(list) == 0 {
			return "", false
		}
		return strings.Join(list, ", "), true
	case []any:
		if len(list) == 0 {
			return "", false
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), true
	case primitive.A:
		return joinList([]any(list))
	default:
		return "", false
	}
}

// historyMessages converts the trailing window of prior turns into
// chat messages. User turns stay user turns, everything else is
// presented as a model turn.
func historyMessages(entries []model.ContextEntry) []*schema.Message {
	if len(entries) > historyWindow {
		entries = entries[len(entries)-historyWindow:]
	}
	msgs := make([]*schema.Message, 0, len(entries))
	for _, e := range entries {
		if e.Role == model.RoleUser {
			msgs = append(msgs, schema.UserMessage(e.Content))
		} else {
			msgs = append(msgs, schema.AssistantMessage(e.Content, nil))
		}
	}
	return msgs
}

// resolveLocation loads the profile timezone, falling back to the
// default and finally UTC when a name cannot be resolved.
func resolveLocation(name string) *time.Location {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	log.Warn().Str("timezone", name).Err(err).Msg("unknown timezone, using default")
	if loc, err = time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}
