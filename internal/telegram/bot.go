// Package telegram lets a single user log meals by sending photos to a bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"nutrilens/internal/analysis"
	"nutrilens/internal/app"
	"nutrilens/internal/config"
	"nutrilens/internal/foodlog"
	"nutrilens/internal/metrics"
	"nutrilens/internal/recommend"
	"nutrilens/internal/user"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxPhotoBytes  = 10 << 20
	sessionTTL     = 15 * time.Minute
	requestTimeout = 2 * time.Minute
)

// botAPI is the part of *tgbotapi.BotAPI the Bot uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Tracker is the meal-tracking surface the bot drives.
type Tracker interface {
	UploadMeal(ctx context.Context, handle, category string, image []byte, mimeType, notes string) (app.UploadResult, error)
	Today(ctx context.Context, handle string) (foodlog.DaySummary, error)
	Week(ctx context.Context, handle string, days int) (app.WeekReport, error)
	Recommend(ctx context.Context, handle string) (recommend.Recommendation, recommend.Suggestion, error)
}

// Profiles loads user profiles.
type Profiles interface {
	Get(ctx context.Context, handle string) (*user.Profile, error)
}

// UsageReporter reads model usage for the admin report.
type UsageReporter interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	GetAgentUsage(ctx context.Context, days int) ([]metrics.AgentUsage, error)
}

// Bot wraps the Telegram API and the meal tracker.
type Bot struct {
	api        botAPI
	tracker    Tracker
	users      Profiles
	usage      UsageReporter
	sessions   *SessionRepository
	cfg        *config.Config
	httpClient *http.Client
	started    time.Time
	now        func() time.Time
}

// NewBot initializes the Telegram Bot. With a webhook URL configured the
// webhook is registered; otherwise any existing webhook is removed so Run
// can poll.
func NewBot(
	cfg *config.Config,
	tracker Tracker,
	users Profiles,
	usage UsageReporter,
	sessions *SessionRepository,
) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		log.Printf("Webhook set response: %s", resp.Description)
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return nil, fmt.Errorf("failed to delete webhook: %w", err)
	}

	return newBot(api, cfg, tracker, users, usage, sessions), nil
}

func newBot(api botAPI, cfg *config.Config, tracker Tracker, users Profiles, usage UsageReporter, sessions *SessionRepository) *Bot {
	return &Bot{
		api:        api,
		tracker:    tracker,
		users:      users,
		usage:      usage,
		sessions:   sessions,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Minute},
		started:    time.Now(),
		now:        time.Now,
	}
}

// RegisterHandlers registers the webhook and health handlers on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	log.Printf("Polling for Telegram updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(update)
		}
	}
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}
	go b.dispatch(*update)
}

func (b *Bot) dispatch(update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if update.CallbackQuery != nil {
		if b.isAllowed(update.CallbackQuery.From) {
			b.handleCallbackQuery(ctx, update.CallbackQuery)
		}
		return
	}
	if update.Message == nil || !b.isAllowed(update.Message.From) {
		return
	}
	b.processMessage(ctx, update.Message)
}

func (b *Bot) isAllowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if from.ID == id {
			return true
		}
	}
	log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", from.ID, from.UserName)
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	handle := b.cfg.TelegramUserHandle
	switch msg.Command() {
	case "today":
		summary, err := b.tracker.Today(ctx, handle)
		b.reply(msg.Chat.ID, func() string { return formatDay(summary) }, err)
	case "week":
		days := 0
		if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				b.sendMarkdown(msg.Chat.ID, "Usage: /week [days]")
				return
			}
			days = n
		}
		report, err := b.tracker.Week(ctx, handle, days)
		b.reply(msg.Chat.ID, func() string { return formatWeek(report) }, err)
	case "recommend":
		b.handleRecommend(ctx, msg.Chat.ID, handle)
	case "profile":
		p, err := b.users.Get(ctx, handle)
		b.reply(msg.Chat.ID, func() string { return formatProfile(p) }, err)
	case "metrics":
		b.handleMetricsRequest(ctx, msg)
	default:
		b.sendMarkdown(msg.Chat.ID, helpText)
	}
}

const helpText = "📸 Send a meal photo with a caption like `lunch` or `dinner after gym`.\n\n" +
	"/today - today's calories\n" +
	"/week [days] - trailing calorie history\n" +
	"/recommend - what to eat next\n" +
	"/profile - your profile and target"

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	fileID := msg.Photo[len(msg.Photo)-1].FileID
	category, notes, ok := parseCaption(msg.Caption)
	if ok {
		b.processPhoto(ctx, msg.Chat.ID, 0, fileID, category, notes)
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	data := SessionContextData{FileID: fileID, Notes: strings.TrimSpace(msg.Caption)}
	if _, err := b.sessions.Create(ctx, userID, SessionAwaitingCategory, "pending", data, sessionTTL, b.now()); err != nil {
		log.Printf("Failed to store pending photo for %s: %v", userID, err)
		b.sendMarkdown(msg.Chat.ID, "❌ Could not keep this photo, please send it again with a caption like `lunch`.")
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, "🍽️ Which meal is this?")
	reply.ReplyMarkup = categoryKeyboard()
	if _, err := b.api.Send(reply); err != nil {
		log.Printf("Failed to send category prompt: %v", err)
	}
}

func categoryKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, c := range foodlog.MealCategories {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Title(), "meal|"+string(c)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	action, category, found := strings.Cut(query.Data, "|")
	if !found || action != "meal" || query.Message == nil {
		return
	}

	// Answer callback to remove spinner
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := strconv.FormatInt(query.From.ID, 10)

	session, err := b.sessions.GetActive(ctx, userID, SessionAwaitingCategory, b.now())
	if err != nil {
		log.Printf("Failed to load pending photo for %s: %v", userID, err)
	}
	if session == nil {
		b.edit(chatID, messageID, "⌛ That photo has expired, please send it again.")
		return
	}
	if err := b.sessions.Delete(ctx, session.ID); err != nil {
		log.Printf("Failed to delete session %d: %v", session.ID, err)
	}

	data, err := session.GetContextData()
	if err != nil {
		log.Printf("Corrupt session %d: %v", session.ID, err)
		b.edit(chatID, messageID, "❌ That photo could not be recovered, please send it again.")
		return
	}
	b.processPhoto(ctx, chatID, messageID, data.FileID, category, data.Notes)
}

// processPhoto downloads, analyzes and logs a photo. The status message is
// sent fresh when messageID is 0, otherwise the given message is edited.
func (b *Bot) processPhoto(ctx context.Context, chatID int64, messageID int, fileID, category, notes string) {
	const statusText = "🔍 *Analyzing your meal...*"
	if messageID == 0 {
		reply := tgbotapi.NewMessage(chatID, statusText)
		reply.ParseMode = tgbotapi.ModeMarkdown
		sent, err := b.api.Send(reply)
		if err != nil {
			log.Printf("Failed to send initial reply: %v", err)
			return
		}
		messageID = sent.MessageID
	} else {
		b.edit(chatID, messageID, statusText)
	}

	image, mimeType, err := b.download(ctx, fileID)
	if err != nil {
		log.Printf("Failed to download photo %s: %v", fileID, err)
		b.edit(chatID, messageID, "❌ Could not download the photo from Telegram.")
		return
	}

	result, err := b.tracker.UploadMeal(ctx, b.cfg.TelegramUserHandle, category, image, mimeType, notes)
	if err != nil && result.Meal.Category == "" {
		log.Printf("Error logging meal: %v", err)
		b.edit(chatID, messageID, formatUploadError(err))
		if errors.Is(err, foodlog.ErrStore) {
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Food log store failure*\n```\n%s\n```", safeErr(err)))
		}
		return
	}
	if err != nil {
		log.Printf("Meal saved with warning: %v", err)
	}
	b.edit(chatID, messageID, formatUpload(result))
}

func (b *Bot) download(ctx context.Context, fileID string) ([]byte, string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("file download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) > maxPhotoBytes {
		return nil, "", fmt.Errorf("photo is larger than %d MiB", maxPhotoBytes>>20)
	}
	return data, http.DetectContentType(data), nil
}

func (b *Bot) handleRecommend(ctx context.Context, chatID int64, handle string) {
	reply := tgbotapi.NewMessage(chatID, "🧑‍🍳 *Thinking...*")
	reply.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(reply)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	rec, suggestion, err := b.tracker.Recommend(ctx, handle)
	if err != nil {
		b.edit(chatID, sent.MessageID, fmt.Sprintf("❌ *Error:*\n```\n%s\n```", safeErr(err)))
		return
	}
	b.edit(chatID, sent.MessageID, formatRecommendation(rec, suggestion))
}

func (b *Bot) handleMetricsRequest(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.sendMarkdown(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	daily, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		log.Printf("Failed to read daily usage: %v", err)
		b.sendMarkdown(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	agents, err := b.usage.GetAgentUsage(ctx, 7)
	if err != nil {
		log.Printf("Failed to read agent usage: %v", err)
		b.sendMarkdown(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth(b.started, b.cfg.DatabasePath, b.cfg.BlobDir)
	b.sendMarkdown(msg.Chat.ID, formatMetrics(daily, agents, health))
}

// reply sends render() on success or the error otherwise.
func (b *Bot) reply(chatID int64, render func() string, err error) {
	if err != nil {
		log.Printf("Command failed: %v", err)
		b.sendMarkdown(chatID, fmt.Sprintf("❌ *Error:*\n```\n%s\n```", safeErr(err)))
		return
	}
	b.sendMarkdown(chatID, render())
}

func (b *Bot) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.sendMarkdown(b.cfg.AdminTelegramID, text)
}

func safeErr(err error) string {
	return strings.ReplaceAll(err.Error(), "`", "'")
}

func formatUploadError(err error) string {
	var failure *analysis.Failure
	switch {
	case errors.As(err, &failure):
		return fmt.Sprintf("❌ *Could not analyze this photo* (%s)\nTry a clearer, well lit picture of the plate.", failure.Reason)
	case errors.Is(err, app.ErrInvalidInput):
		return "❌ Unknown meal. Use breakfast, lunch, dinner or snack."
	default:
		return fmt.Sprintf("❌ *Error logging meal:*\n```\n%s\n```", safeErr(err))
	}
}

// parseCaption reads "category [notes]". ok is false when the first word is
// not a meal category.
func parseCaption(caption string) (category, notes string, ok bool) {
	fields := strings.Fields(caption)
	if len(fields) == 0 {
		return "", "", false
	}
	c, err := foodlog.ParseMealCategory(fields[0])
	if err != nil {
		return "", "", false
	}
	return string(c), strings.Join(fields[1:], " "), true
}
