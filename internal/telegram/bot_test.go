package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"fitlife-planner/internal/app"
	"fitlife-planner/internal/config"
	"fitlife-planner/internal/meal"
	"fitlife-planner/internal/planner"
	"fitlife-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAPI records everything the bot sends to Telegram.
type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) HandleUpdate(r *http.Request) (*tgbotapi.Update, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) calls() (sent, requests int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent), len(f.requests)
}

func message(from int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: from, UserName: "user"},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
	}}
}

func buttonPress(from int64, data string) *tgbotapi.Update {
	return &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Backend:         config.BackendSQLite,
		DatabasePath:    filepath.Join(dir, "planner.db"),
		CacheDir:        filepath.Join(dir, "cache"),
		AdminTelegramID: 42,

		TelegramAllowedUserIDs: []int64{7, 42},
	}
	a, err := app.New(cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Failed to load app: %v", err)
	}
	return &Bot{api: &fakeAPI{}, app: a, cfg: cfg, logger: zap.NewNop()}
}

func TestBotCommands(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()
	send := func(text string) reply {
		t.Helper()
		return b.handleText(ctx, 7, text)
	}

	if r := send("/addmeal Oatmeal | oats, milk | https://example.com/oats | Soak"); !strings.Contains(r.Text, "Added") {
		t.Fatalf("Expected meal to be added, got %q", r.Text)
	}
	if r := send("/addmeal  | salt"); !strings.HasPrefix(r.Text, "Usage") {
		t.Errorf("Expected usage for blank name, got %q", r.Text)
	}
	send("/addmeal Salad | lettuce")

	if r := send("/meals"); !strings.Contains(r.Text, "1. Oatmeal (2 ingredients)") || !strings.Contains(r.Text, "2. Salad") {
		t.Errorf("Unexpected meal list: %q", r.Text)
	}

	if r := send("/assign mon 1"); !strings.Contains(r.Text, "Monday") {
		t.Errorf("Expected assignment to Monday, got %q", r.Text)
	}
	if r := send("/assign Funday 1"); !strings.Contains(r.Text, "unknown day") {
		t.Errorf("Expected unknown day error, got %q", r.Text)
	}
	if r := send("/assign Tue 9"); !strings.Contains(r.Text, "between 1 and 2") {
		t.Errorf("Expected range error, got %q", r.Text)
	}
	send("/workout Mon Run 5k")

	if got := b.app.Plans.Day(planner.Monday); len(got.Meals) != 1 || got.Workouts[0] != "Run 5k" {
		t.Fatalf("Unexpected Monday plan: %+v", got)
	}

	r := send("/plan")
	if !strings.Contains(r.Text, "*Monday*") || !strings.Contains(r.Text, "🍽 1. Oatmeal") || !strings.Contains(r.Text, "🏋 1. Run 5k") {
		t.Errorf("Unexpected plan: %q", r.Text)
	}

	if r := send("/meal 1"); !strings.Contains(r.Text, "Planned on Monday") || !strings.Contains(r.Text, "Soak") {
		t.Errorf("Unexpected meal detail: %q", r.Text)
	}

	if r := send("/shopping"); !strings.Contains(r.Text, "• oats") {
		t.Errorf("Unexpected shopping list: %q", r.Text)
	}

	if r := send("/editmeal 2 | lettuce, tomato"); !strings.Contains(r.Text, `Updated "Salad"`) {
		t.Errorf("Expected update, got %q", r.Text)
	}

	if r := send("/remove Mon workouts 1"); !strings.Contains(r.Text, "removed workouts entry 1") {
		t.Errorf("Expected removal, got %q", r.Text)
	}
	if r := send("/remove Mon workouts 1"); !strings.Contains(r.Text, "empty") {
		t.Errorf("Expected empty list error, got %q", r.Text)
	}

	if r := send("/status"); !strings.Contains(r.Text, "admin only") {
		t.Errorf("Expected admin gate, got %q", r.Text)
	}
	if r := b.handleText(ctx, 42, "/status"); !strings.Contains(r.Text, "Usage & Health Report") {
		t.Errorf("Expected report for admin, got %q", r.Text)
	}

	if r := send("/dance"); !strings.Contains(r.Text, "Unknown command") {
		t.Errorf("Expected unknown command, got %q", r.Text)
	}
}

func TestBotDeleteFlow(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	b.handleText(ctx, 7, "/addmeal Oatmeal | oats")
	b.handleText(ctx, 7, "/assign Wed 1")
	oatmeal := b.app.Catalog.List()[0]

	r := b.handleText(ctx, 7, "/deletemeal 1")
	if r.Keyboard == nil {
		t.Fatal("Expected a confirmation keyboard")
	}
	yes := *r.Keyboard.InlineKeyboard[0][0].CallbackData
	if yes != "delmeal|"+oatmeal.ID {
		t.Errorf("Unexpected callback data %q", yes)
	}
	if !b.app.Catalog.Has(oatmeal.ID) {
		t.Fatal("Meal must not be deleted before confirmation")
	}

	if r := b.handleCallback(ctx, "cancel|"); r.Text != "Cancelled." {
		t.Errorf("Expected cancel reply, got %q", r.Text)
	}
	if !b.app.Catalog.Has(oatmeal.ID) {
		t.Fatal("Cancel must keep the meal")
	}

	r = b.handleCallback(ctx, yes)
	if !strings.Contains(r.Text, "removed it from 1 day(s)") {
		t.Errorf("Unexpected delete reply %q", r.Text)
	}
	if b.app.Catalog.Has(oatmeal.ID) {
		t.Error("Meal should be deleted")
	}
	if got := b.app.Plans.Day(planner.Wednesday).Meals; len(got) != 0 {
		t.Errorf("Expected Wednesday to be cleaned, got %v", got)
	}
}

func TestFormatWeek(t *testing.T) {
	plan := planner.EmptyPlan()
	plan[planner.Monday] = planner.DayPlan{Meals: []string{"m1", "gone"}, Workouts: []string{"Leg_day"}}
	week := app.BuildWeek(plan, []meal.Meal{{ID: "m1", Name: "Tacos"}})

	out := formatWeek(week)
	if !strings.Contains(out, "📅 *Weekly Plan*") {
		t.Error("Missing plan header")
	}
	if !strings.Contains(out, "🍽 1. Tacos") || !strings.Contains(out, "🍽 2. Unknown meal") {
		t.Errorf("Missing resolved meals: %q", out)
	}
	if !strings.Contains(out, `Leg\_day`) {
		t.Errorf("Expected markdown to be escaped: %q", out)
	}
	if strings.Count(out, "_Nothing planned_") != 6 {
		t.Errorf("Expected six empty days: %q", out)
	}
}

func TestFormatShopping(t *testing.T) {
	out := formatShopping(shopping.List{
		Items:      []shopping.Item{{Name: "Cheese", Count: 2}, {Name: "Lettuce", Count: 1}},
		Unresolved: []string{"x"},
	})
	if !strings.Contains(out, "🛒 *Shopping List*") {
		t.Error("Missing shopping list header")
	}
	if !strings.Contains(out, "• Cheese ×2") || !strings.Contains(out, "• Lettuce\n") {
		t.Errorf("Unexpected items: %q", out)
	}
	if !strings.Contains(out, "1 planned meal(s)") {
		t.Errorf("Missing unresolved note: %q", out)
	}
}

func TestParseMealFields(t *testing.T) {
	in := parseMealFields(" Soup | carrot, leek ")
	if in.Name != "Soup" || in.Ingredients != "carrot, leek" || in.SourceLink != "" {
		t.Errorf("Unexpected input %+v", in)
	}
	in = parseMealFields("a|b|c|notes | with pipe")
	if in.RecipeNotes != "notes | with pipe" {
		t.Errorf("Expected notes to keep extra pipes, got %q", in.RecipeNotes)
	}
}

func TestBotAllowList(t *testing.T) {
	b := newTestBot(t)
	api := b.api.(*fakeAPI)
	ctx := context.Background()

	b.handleText(ctx, 7, "/addmeal Oatmeal | oats")
	oatmeal := b.app.Catalog.List()[0]

	t.Run("StrangerMessageIgnored", func(t *testing.T) {
		b.handleUpdate(message(99, "/addmeal Soup | leek"))
		assert.Len(t, b.app.Catalog.List(), 1)
		sent, requests := api.calls()
		assert.Zero(t, sent)
		assert.Zero(t, requests)
	})

	t.Run("StrangerButtonIgnored", func(t *testing.T) {
		b.handleUpdate(buttonPress(99, "delmeal|"+oatmeal.ID))
		assert.True(t, b.app.Catalog.Has(oatmeal.ID))
		sent, requests := api.calls()
		assert.Zero(t, sent)
		assert.Zero(t, requests)
	})

	t.Run("MissingSenderIgnored", func(t *testing.T) {
		b.handleUpdate(&tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", Data: "delmeal|" + oatmeal.ID}})
		assert.True(t, b.app.Catalog.Has(oatmeal.ID))
	})

	t.Run("AllowedUserServed", func(t *testing.T) {
		b.handleUpdate(message(7, "/meals"))
		sent, _ := api.calls()
		require.Equal(t, 1, sent)
		msg, ok := api.sent[0].(tgbotapi.MessageConfig)
		require.True(t, ok)
		assert.Equal(t, int64(7), msg.ChatID)
		assert.Contains(t, msg.Text, "Oatmeal")

		b.handleUpdate(buttonPress(7, "delmeal|"+oatmeal.ID))
		assert.False(t, b.app.Catalog.Has(oatmeal.ID))
		sent, requests := api.calls()
		assert.Equal(t, 2, sent)
		assert.Equal(t, 1, requests)
	})
}

// Another client deletes a meal while the bot still has it planned.
func TestBotSeesOtherClients(t *testing.T) {
	b := newTestBot(t)
	ctx := context.Background()

	b.handleText(ctx, 7, "/addmeal Oatmeal | oats")
	b.handleText(ctx, 7, "/assign Mon 1")
	oatmeal := b.app.Catalog.List()[0]

	otherCfg := *b.cfg
	otherCfg.CacheDir = filepath.Join(t.TempDir(), "cache")
	other, err := app.New(&otherCfg, nil)
	require.NoError(t, err)
	defer other.Close()
	require.NoError(t, other.Load(ctx))
	_, err = other.Catalog.Delete(ctx, oatmeal.ID, meal.Confirmed)
	require.NoError(t, err)

	if r := b.handleText(ctx, 7, "/workout Mon Run"); !strings.Contains(r.Text, "added workout") {
		t.Fatalf("Expected workout to be added, got %q", r.Text)
	}
	if r := b.handleText(ctx, 7, "/meals"); strings.Contains(r.Text, "Oatmeal") {
		t.Errorf("Deleted meal still listed: %q", r.Text)
	}

	require.NoError(t, other.Plans.Refresh(ctx))
	mon := other.Plans.Day(planner.Monday)
	assert.Empty(t, mon.Meals, "deleted meal must not come back")
	assert.Equal(t, []string{"Run"}, mon.Workouts)
}
