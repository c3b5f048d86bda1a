package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/reviewlink/reviewlink/config"
	"github.com/reviewlink/reviewlink/tlmt"
	"github.com/reviewlink/reviewlink/tlmt/gonoop"
	"github.com/reviewlink/reviewlink/tlmt/goposthog"
)

var ErrInvalidRunMode = errors.New("invalid run mode")

type Runner interface {
	Run(context.Context) error
	Close(context.Context) error
}

// NewLogger returns a production logger, or a development one in debug mode.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

// NewTelemetry returns the PostHog sink when a key is configured and a no-op
// sink otherwise. A sink that cannot be built degrades to the no-op one.
func NewTelemetry(cfg *config.Config, logger *zap.Logger) tlmt.Telemetry {
	if cfg.PostHogKey == "" || os.Getenv("DISABLE_TELEMETRY") == "1" {
		return gonoop.New()
	}

	val, err := goposthog.New(cfg.PostHogKey, cfg.PostHogEndpoint)
	if err != nil || val == nil {
		logger.Warn("posthog sink disabled", zap.Error(err))

		return gonoop.New()
	}

	return val
}

func wrapText(text string, width int) []string {
	var lines []string

	currentLine := ""
	currentWidth := 0

	for _, r := range text {
		runeWidth := runewidth.RuneWidth(r)
		if currentWidth+runeWidth > width {
			lines = append(lines, currentLine)
			currentLine = string(r)
			currentWidth = runeWidth
		} else {
			currentLine += string(r)
			currentWidth += runeWidth
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

func banner(messages []string, width int) string {
	if width <= 0 {
		var err error

		width, _, err = term.GetSize(int(os.Stderr.Fd()))
		if err != nil {
			width = 80
		}
	}

	if width < 20 {
		width = 20
	}

	contentWidth := width - 4

	var wrappedLines []string
	for _, message := range messages {
		wrappedLines = append(wrappedLines, wrapText(message, contentWidth)...)
	}

	var builder strings.Builder

	builder.WriteString("╔" + strings.Repeat("═", width-2) + "╗\n")

	for _, line := range wrappedLines {
		paddingRight := max(contentWidth-runewidth.StringWidth(line), 0)

		builder.WriteString(fmt.Sprintf("║ %s%s ║\n", line, strings.Repeat(" ", paddingRight)))
	}

	builder.WriteString("╚" + strings.Repeat("═", width-2) + "╝\n")

	return builder.String()
}

// Banner prints the startup box to stderr. Resolve mode keeps stderr quiet.
func Banner(cfg *config.Config) {
	if cfg.RunMode == config.RunModeResolve {
		return
	}

	mode := "web server on " + cfg.Addr
	if cfg.RunMode == config.RunModeWorker {
		mode = "analytics worker"
	}

	messages := []string{
		"⭐ reviewlink: Google review links for any business",
		"🚀 mode: " + mode,
		"🗄  store: " + cfg.Store,
	}

	if cfg.Debug {
		messages = append(messages, "🐛 debug logging enabled")
	}

	fmt.Fprintln(os.Stderr, banner(messages, 0))
}
