package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"fitlife-planner/internal/app"
	"fitlife-planner/internal/config"
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	callbackDeleteMeal = "delmeal"
	callbackCancel     = "cancel"
)

// botAPI is the part of tgbotapi.BotAPI the bot uses.
type botAPI interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot wraps the Telegram API around the meal catalog and weekly plan.
type Bot struct {
	api    botAPI
	app    *app.App
	cfg    *config.Config
	logger *zap.Logger
}

// reply is what a command produces; the transport decides how to send it.
type reply struct {
	Text     string
	Markdown bool
	Keyboard *tgbotapi.InlineKeyboardMarkup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, a *app.App, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("telegram")

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("authorized", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	logger.Info("webhook set", zap.String("response", resp.Description))

	return &Bot{api: api, app: a, cfg: cfg, logger: logger}, nil
}

// RegisterHandlers mounts the webhook endpoint on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("error parsing update", zap.Error(err))
		return
	}
	go b.handleUpdate(update)
}

// handleUpdate serves a message or button press from an allowed user and
// drops everything else without a reply.
func (b *Bot) handleUpdate(update *tgbotapi.Update) {
	if q := update.CallbackQuery; q != nil {
		if q.From == nil || !b.allowed(q.From.ID) {
			b.logger.Warn("unauthorized callback", zap.Int64("user_id", userID(q.From)))
			return
		}
		b.processCallback(q)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.allowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt",
			zap.Int64("user_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		return
	}
	b.processMessage(msg)
}

func userID(u *tgbotapi.User) int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, userID)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b.send(msg.Chat.ID, b.handleText(ctx, msg.From.ID, msg.Text))
}

func (b *Bot) processCallback(q *tgbotapi.CallbackQuery) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Answer callback to remove spinner
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.logger.Warn("failed to answer callback", zap.Error(err))
	}
	if q.Message == nil {
		return
	}

	r := b.handleCallback(ctx, q.Data)
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, r.Text)
	if r.Markdown {
		edit.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("failed to edit message", zap.Error(err))
	}
}

func (b *Bot) send(chatID int64, r reply) {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if r.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if r.Keyboard != nil {
		msg.ReplyMarkup = *r.Keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// handleText routes a chat message to its command.
func (b *Bot) handleText(ctx context.Context, userID int64, text string) reply {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
		return b.clip(ctx, text)
	}

	cmd, args, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	args = strings.TrimSpace(args)

	switch cmd {
	case "/start", "/help", "/status":
	default:
		b.sync(ctx)
	}

	switch cmd {
	case "/start", "/help":
		return reply{Text: helpText}
	case "/plan":
		return reply{Text: formatWeek(b.app.Week()), Markdown: true}
	case "/meals":
		return reply{Text: formatMeals(b.app.Catalog.List()), Markdown: true}
	case "/meal":
		return b.showMeal(args)
	case "/addmeal":
		return b.addMeal(ctx, args)
	case "/editmeal":
		return b.editMeal(ctx, args)
	case "/deletemeal":
		return b.confirmDelete(args)
	case "/assign":
		return b.assign(ctx, args)
	case "/workout":
		return b.workout(ctx, args)
	case "/remove":
		return b.remove(ctx, args)
	case "/shopping":
		return reply{Text: formatShopping(b.app.ShoppingList()), Markdown: true}
	case "/status":
		if b.cfg.AdminTelegramID == 0 || userID != b.cfg.AdminTelegramID {
			return reply{Text: "⛔ Access denied: admin only."}
		}
		return b.status(ctx)
	}
	return reply{Text: "Unknown command. Send /help for the list."}
}

const helpText = `FitLife weekly planner

/plan - show the week
/meals - list the meal catalog
/meal N - show meal N
/addmeal name | ingredients | link | notes
/editmeal N name | ingredients | link | notes
/deletemeal N - delete meal N and remove it from the plan
/assign Day N - plan meal N on Day
/workout Day text - add a workout
/remove Day meals|workouts N - remove entry N of a day
/shopping - ingredients for the planned meals

Send a recipe link to import it.`

func (b *Bot) clip(ctx context.Context, url string) reply {
	m, err := b.app.Clipper.ClipURL(ctx, url)
	if err != nil {
		b.logger.Error("error clipping recipe", zap.String("url", url), zap.Error(err))
		return errorReply("importing recipe", err)
	}
	return reply{Text: fmt.Sprintf("✅ Imported %q with %d ingredients.", m.Name, len(m.Ingredients))}
}

func (b *Bot) mealAt(arg string) (meal.Meal, error) {
	meals := b.app.Catalog.List()
	i, err := parseIndex(arg, len(meals))
	if err != nil {
		return meal.Meal{}, err
	}
	return meals[i], nil
}

func (b *Bot) showMeal(args string) reply {
	m, err := b.mealAt(args)
	if err != nil {
		return reply{Text: err.Error()}
	}
	d, ok := b.app.Detail(m.ID)
	if !ok {
		return reply{Text: "Meal not found."}
	}
	return reply{Text: formatDetail(d), Markdown: true}
}

func (b *Bot) addMeal(ctx context.Context, args string) reply {
	in := parseMealFields(args)
	m, err := b.app.Catalog.Create(ctx, in)
	if errors.Is(err, meal.ErrEmptyName) {
		return reply{Text: "Usage: /addmeal name | ingredients | link | notes"}
	}
	if err != nil {
		return errorReply("saving meal", err)
	}
	return reply{Text: fmt.Sprintf("✅ Added %q.", m.Name)}
}

func (b *Bot) editMeal(ctx context.Context, args string) reply {
	idx, fields, _ := strings.Cut(args, " ")
	m, err := b.mealAt(idx)
	if err != nil {
		return reply{Text: err.Error()}
	}

	// Blank fields keep their current value.
	current := meal.FormFromMeal(m)
	in := parseMealFields(fields)
	if in.Name == "" {
		in.Name = current.Name
	}
	if in.Ingredients == "" {
		in.Ingredients = current.Ingredients
	}
	if in.SourceLink == "" {
		in.SourceLink = current.SourceLink
	}
	if in.RecipeNotes == "" {
		in.RecipeNotes = current.RecipeNotes
	}

	if err := b.app.Catalog.Update(ctx, m.ID, meal.PatchFromInput(in)); err != nil {
		return errorReply("updating meal", err)
	}
	return reply{Text: fmt.Sprintf("✅ Updated %q.", in.Name)}
}

func (b *Bot) confirmDelete(args string) reply {
	m, err := b.mealAt(args)
	if err != nil {
		return reply{Text: err.Error()}
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Yes, delete", callbackDeleteMeal+"|"+m.ID),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", callbackCancel+"|"),
		),
	)
	return reply{
		Text:     fmt.Sprintf("Delete %q? It will also be removed from every day of the plan.", m.Name),
		Keyboard: &keyboard,
	}
}

// handleCallback resolves an inline keyboard answer.
func (b *Bot) handleCallback(ctx context.Context, data string) reply {
	action, id, _ := strings.Cut(data, "|")
	switch action {
	case callbackCancel:
		return reply{Text: "Cancelled."}
	case callbackDeleteMeal:
		b.sync(ctx)
		name := id
		if m, ok := b.app.Catalog.Lookup(id); ok {
			name = m.Name
		}
		// The button press is the confirmation.
		res, err := b.app.Catalog.Delete(ctx, id, meal.Confirmed)
		switch {
		case errors.Is(err, meal.ErrCascadeIncomplete):
			return reply{Text: fmt.Sprintf("⚠️ Deleted %q, but some days still reference it: %v", name, err)}
		case err != nil:
			return errorReply("deleting meal", err)
		}
		return reply{Text: fmt.Sprintf("🗑 Deleted %q and removed it from %d day(s).", name, len(res.DaysCleaned))}
	}
	return reply{Text: "Unknown action."}
}

func (b *Bot) assign(ctx context.Context, args string) reply {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return reply{Text: "Usage: /assign Day N"}
	}
	day, err := parseDay(fields[0])
	if err != nil {
		return reply{Text: err.Error()}
	}
	m, err := b.mealAt(fields[1])
	if err != nil {
		return reply{Text: err.Error()}
	}
	if err := b.app.Plans.AddMeal(ctx, day, m.ID); err != nil {
		return errorReply("saving plan", err)
	}
	return reply{Text: fmt.Sprintf("✅ %s: added %q.", day.FullName(), m.Name)}
}

func (b *Bot) workout(ctx context.Context, args string) reply {
	dayArg, text, _ := strings.Cut(args, " ")
	day, err := parseDay(dayArg)
	if err != nil {
		return reply{Text: err.Error()}
	}
	if strings.TrimSpace(text) == "" {
		return reply{Text: "Usage: /workout Day text"}
	}
	if err := b.app.Plans.AddWorkout(ctx, day, text); err != nil {
		return errorReply("saving plan", err)
	}
	return reply{Text: fmt.Sprintf("✅ %s: added workout %q.", day.FullName(), strings.TrimSpace(text))}
}

func (b *Bot) remove(ctx context.Context, args string) reply {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return reply{Text: "Usage: /remove Day meals|workouts N"}
	}
	day, err := parseDay(fields[0])
	if err != nil {
		return reply{Text: err.Error()}
	}
	slot, err := parseSlot(fields[1])
	if err != nil {
		return reply{Text: err.Error()}
	}
	list := b.app.Plans.Day(day).Meals
	if slot == planner.SlotWorkouts {
		list = b.app.Plans.Day(day).Workouts
	}
	i, err := parseIndex(fields[2], len(list))
	if err != nil {
		return reply{Text: err.Error()}
	}
	if err := b.app.Plans.DeleteEntry(ctx, day, slot, i); err != nil {
		return errorReply("saving plan", err)
	}
	return reply{Text: fmt.Sprintf("✅ %s: removed %s entry %d.", day.FullName(), slot, i+1)}
}

func (b *Bot) status(ctx context.Context) reply {
	activity, err := b.app.Metrics.GetDailyActivity(ctx, 7)
	if err != nil {
		return errorReply("fetching metrics", err)
	}
	failures, err := b.app.Metrics.RecentFailures(ctx, 3)
	if err != nil {
		return errorReply("fetching metrics", err)
	}
	return reply{Text: formatStatus(activity, failures, b.app.Health()), Markdown: true}
}

// sync pulls changes made by other clients before a command reads or
// writes the stores. A failed sync is logged and the command runs on the
// last known state.
func (b *Bot) sync(ctx context.Context) {
	if err := b.app.Sync(ctx); err != nil {
		b.logger.Warn("serving last known state", zap.Error(err))
	}
}

func errorReply(action string, err error) reply {
	return reply{Text: fmt.Sprintf("❌ Error %s: %v", action, err)}
}
