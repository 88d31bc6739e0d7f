// Command prismai sends a prompt through the optimizer against any
// OpenAI-compatible inference endpoint. Useful for smoke-testing a
// provider and watching cache/coalescing behavior from the shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	optimizer "github.com/nabeelKh14/prismai-platform-sub008"
	"github.com/nabeelKh14/prismai-platform-sub008/providers/openailike"
)

func main() {
	var (
		baseURL = flag.String("base-url", envOr("PRISMAI_BASE_URL", "https://api.openai.com/v1"), "OpenAI-compatible API base URL")
		model   = flag.String("model", "", "model to use (default: provider default)")
		repeat  = flag.Int("repeat", 1, "send the prompt N times to observe caching")
		ttl     = flag.Duration("cache-ttl", time.Hour, "response cache TTL")
		rpm     = flag.Int("rate-limit", 60, "requests per minute per identifier")
	)
	flag.Parse()

	prompt := flag.Arg(0)
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: prismai [flags] <prompt>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	upstream := openailike.New(openailike.Info{
		Name:           "openailike",
		DefaultBaseURL: *baseURL,
	}, openailike.WithAPIKey(os.Getenv("PRISMAI_API_KEY")))

	client, err := optimizer.New(
		optimizer.WithUpstream(upstream),
		optimizer.WithCacheTTL(*ttl),
		optimizer.WithRateLimit(*rpm),
		optimizer.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to build client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	req := &optimizer.ChatRequest{
		Model:    *model,
		Messages: []optimizer.ChatMessage{{Role: "user", Content: prompt}},
	}

	for i := 0; i < *repeat; i++ {
		res, err := client.CreateChatCompletion(ctx, req, nil)
		if err != nil {
			logger.Error("request failed", "error", err)
			os.Exit(1)
		}

		content := ""
		if len(res.Chat.Choices) > 0 {
			content = res.Chat.Choices[0].Message.Content
		}
		fmt.Printf("[%d] cached=%v tokens=%d cost=$%.6f elapsed=%s\n%s\n",
			i+1, res.ServedFromCache, res.Tokens, res.Cost, res.Elapsed, content)
	}

	stats := client.CacheStats()
	fmt.Printf("cache: hits=%d misses=%d hit_rate=%.2f\n", stats.Hits, stats.Misses, stats.HitRate)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
