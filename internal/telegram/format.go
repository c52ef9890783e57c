package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"fitlife-planner/internal/app"
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/metrics"
	"fitlife-planner/internal/planner"
	"fitlife-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatWeek(week []app.DayView) string {
	var sb strings.Builder
	sb.WriteString("📅 *Weekly Plan*\n")

	for _, d := range week {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", d.Day.FullName()))
		if len(d.Meals) == 0 && len(d.Workouts) == 0 {
			sb.WriteString("_Nothing planned_\n")
			continue
		}
		for i, m := range d.Meals {
			sb.WriteString(fmt.Sprintf("🍽 %d. %s\n", i+1, esc(m.Name)))
		}
		for i, w := range d.Workouts {
			sb.WriteString(fmt.Sprintf("🏋 %d. %s\n", i+1, esc(w)))
		}
	}
	return sb.String()
}

func formatMeals(meals []meal.Meal) string {
	if len(meals) == 0 {
		return "📖 *Meals*\n\n_No meals yet. Add one with /addmeal._"
	}
	var sb strings.Builder
	sb.WriteString("📖 *Meals*\n\n")
	for i, m := range meals {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, esc(m.Name)))
		if n := len(m.Ingredients); n > 0 {
			sb.WriteString(fmt.Sprintf(" (%d ingredients)", n))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatDetail(d app.MealDetail) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *%s*\n", esc(d.Name)))

	if len(d.Ingredients) > 0 {
		sb.WriteString("\n*Ingredients*\n")
		for _, ing := range d.Ingredients {
			sb.WriteString(fmt.Sprintf("• %s\n", esc(ing)))
		}
	}
	if d.RecipeNotes != "" {
		sb.WriteString(fmt.Sprintf("\n*Notes*\n%s\n", esc(d.RecipeNotes)))
	}
	if d.SourceLink != "" {
		sb.WriteString(fmt.Sprintf("\n🔗 %s\n", esc(d.SourceLink)))
	}
	if len(d.PlannedOn) > 0 {
		days := make([]string, len(d.PlannedOn))
		for i, day := range d.PlannedOn {
			days[i] = day.FullName()
		}
		sb.WriteString(fmt.Sprintf("\n📅 Planned on %s\n", strings.Join(days, ", ")))
	}
	return sb.String()
}

func formatShopping(l shopping.List) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	if len(l.Items) == 0 {
		sb.WriteString("_No meals planned_\n")
	}
	for _, item := range l.Items {
		sb.WriteString(fmt.Sprintf("• %s", esc(item.Name)))
		if item.Count > 1 {
			sb.WriteString(fmt.Sprintf(" ×%d", item.Count))
		}
		sb.WriteString("\n")
	}
	if n := len(l.Unresolved); n > 0 {
		sb.WriteString(fmt.Sprintf("\n_%d planned meal(s) are no longer in the catalog_\n", n))
	}
	return sb.String()
}

func formatStatus(activity []metrics.DailyActivity, failures []metrics.RemoteCall, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString(fmt.Sprintf("🗄 *Backend:* %s\n\n", esc(health.Backend)))
	sb.WriteString("🗓 *Recent Remote Calls*\n")
	if len(activity) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range activity {
		sb.WriteString(fmt.Sprintf("• *%s*: %d calls, %d failed, %.0fms avg\n", d.Date, d.Calls, d.Failures, d.AvgLatencyMS))
	}
	if len(failures) > 0 {
		sb.WriteString("\n⚠️ *Last Failures*\n")
		for _, f := range failures {
			sb.WriteString(fmt.Sprintf("• %s %s: %s\n", esc(f.Table), esc(f.Operation), esc(f.Err.Error())))
		}
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Database: %s\n", health.DataSize))
	sb.WriteString(fmt.Sprintf("• Cache: %s\n", health.CacheSize))
	return sb.String()
}

// parseIndex converts a 1-based position from the chat into a slice index.
func parseIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if i < 1 || i > n {
		if n == 0 {
			return 0, fmt.Errorf("the list is empty")
		}
		return 0, fmt.Errorf("pick a number between 1 and %d", n)
	}
	return i - 1, nil
}

func parseDay(s string) (planner.WeekDay, error) {
	d, err := planner.ParseWeekDay(s)
	if err != nil {
		return "", fmt.Errorf("unknown day %q, use Mon..Sun", s)
	}
	return d, nil
}

func parseSlot(s string) (planner.Slot, error) {
	slot, err := planner.ParseSlot(strings.ToLower(s))
	if err != nil {
		return "", fmt.Errorf("unknown list %q, use meals or workouts", s)
	}
	return slot, nil
}

// parseMealFields reads "name | ingredients | link | notes"; trailing
// fields may be omitted.
func parseMealFields(s string) meal.Input {
	parts := strings.SplitN(s, "|", 4)
	for len(parts) < 4 {
		parts = append(parts, "")
	}
	return meal.Input{
		Name:        strings.TrimSpace(parts[0]),
		Ingredients: strings.TrimSpace(parts[1]),
		SourceLink:  strings.TrimSpace(parts[2]),
		RecipeNotes: strings.TrimSpace(parts[3]),
	}
}
