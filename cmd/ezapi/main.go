package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/RassulYunussov/ezapi"
	"github.com/RassulYunussov/ezapi/config"
	"github.com/RassulYunussov/ezapi/dialogue"
	"github.com/RassulYunussov/ezapi/internal/logger"
)

const usage = `usage: ezapi [-config file] [-backoff d] [-breaker n] <command> [args]

commands:
  list                                        list configured endpoints
  hit [-data json] [-q k=v] [-p k=v] <id>     call an endpoint with a raw JSON payload
  ask [-story N] [-chapter N] <question>      ask the dialogue backend
  story [-id N]                               fetch story params through the cache
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("ezapi", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := flags.String("config", getEnv("EZAPI_CONFIG", "ezapi.yaml"), "settings file")
	backoff := flags.Duration("backoff", 0, "linear backoff step between retries, 0 retries immediately")
	breaker := flags.Uint("breaker", 0, "consecutive failures that open an endpoint's circuit breaker, 0 disables it")
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if *backoff < 0 {
		fmt.Fprintln(stderr, "-backoff must not be negative")
		return 2
	}
	if flags.NArg() == 0 {
		flags.Usage()
		return 2
	}

	log := logger.Setup(stderr, config.ParseLogLevel(os.Getenv("LOG_LEVEL")), getEnv("ENVIRONMENT", "development"))

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Error("Failed to load settings", "path", *configPath, "error", err)
		return 1
	}
	dialogue.Register(settings)
	opts := []ezapi.Option{ezapi.WithLogger(log)}
	if *backoff > 0 {
		opts = append(opts, ezapi.WithBackoff(*backoff))
	}
	if *breaker > 0 {
		opts = append(opts, ezapi.WithCircuitBreaker(1, uint32(*breaker), time.Minute, 30*time.Second))
	}
	client, err := ezapi.Create(settings, opts...)
	if err != nil {
		log.Error("Failed to create client", "error", err)
		return 1
	}

	command, rest := flags.Arg(0), flags.Args()[1:]
	switch command {
	case "list":
		err = list(client, stdout)
	case "hit":
		err = hit(ctx, client, rest, stdout, stderr)
	case "ask":
		err = ask(ctx, client, log, rest, stdout, stderr)
	case "story":
		err = story(ctx, client, log, rest, stdout, stderr)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintln(stderr, err)
		fmt.Fprint(stderr, usage)
		return 2
	default:
		log.Error("Command failed", "command", command, "error", err)
		return 1
	}
}

func list(client *ezapi.Client, stdout io.Writer) error {
	for _, id := range client.Endpoints() {
		fmt.Fprintln(stdout, id)
	}
	return nil
}

func hit(ctx context.Context, client *ezapi.Client, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("hit", flag.ContinueOnError)
	flags.SetOutput(stderr)
	data := flags.String("data", "", "JSON payload")
	query := pairs{}
	params := pairs{}
	flags.Var(query, "q", "query parameter k=v, repeatable")
	flags.Var(params, "p", "path parameter k=v, repeatable")
	showProgress := flags.Bool("progress", false, "report transfer progress on stderr")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() != 1 {
		return fmt.Errorf("%w: hit takes one endpoint id", errUsage)
	}

	var payload *json.RawMessage
	if *data != "" {
		if !json.Valid([]byte(*data)) {
			return fmt.Errorf("%w: -data is not valid JSON", errUsage)
		}
		raw := json.RawMessage(*data)
		payload = &raw
	}
	var onProgress ezapi.ProgressFunc
	if *showProgress {
		onProgress = func(fraction float64) {
			fmt.Fprintf(stderr, "progress %3.0f%%\n", fraction*100)
		}
	}

	req := ezapi.Request{Endpoint: flags.Arg(0), Query: query, PathParams: params}
	resp, err := ezapi.Hit[json.RawMessage, json.RawMessage](ctx, client, req, payload, onProgress)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d\n", resp.ResponseCode)
	if len(resp.Raw) > 0 {
		fmt.Fprintln(stdout, string(resp.Raw))
	}
	return resp.Err()
}

func ask(ctx context.Context, client *ezapi.Client, log *slog.Logger, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("ask", flag.ContinueOnError)
	flags.SetOutput(stderr)
	storyID := flags.Int("story", 1, "story id")
	chapterID := flags.Int("chapter", 1, "active chapter id")
	completed := flags.String("completed", "", "comma separated completed chapter ids")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() == 0 {
		return fmt.Errorf("%w: ask needs a question", errUsage)
	}
	done, err := parseIDs(*completed)
	if err != nil {
		return fmt.Errorf("%w: -completed: %v", errUsage, err)
	}

	service := dialogue.NewService(client, *storyID, nil, log)
	reply, err := service.Ask(ctx, *chapterID, strings.Join(flags.Args(), " "), done, nil)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, reply)
	return nil
}

func story(ctx context.Context, client *ezapi.Client, log *slog.Logger, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("story", flag.ContinueOnError)
	flags.SetOutput(stderr)
	storyID := flags.Int("id", 1, "story id")
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	var cache dialogue.StoryCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisCache, err := dialogue.NewRedisStoryCacheFromURL(redisURL, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisCache.Close(); err != nil {
				log.Error("Error closing redis", "error", err)
			}
		}()
		if err := redisCache.Ping(ctx); err != nil {
			return err
		}
		cache = redisCache
	}

	service := dialogue.NewService(client, *storyID, cache, log)
	record, changed, err := service.StoryParams(ctx)
	if err != nil {
		return err
	}
	log.Info("Story params ready", "story_id", *storyID, "changed", changed, "hash", record.ContentHash)
	out, err := json.MarshalIndent(record.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(out))
	return nil
}

// pairs collects repeated k=v flags.
type pairs map[string]string

func (p pairs) String() string {
	parts := make([]string, 0, len(p))
	for k, v := range p {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p pairs) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("expected k=v, got %q", value)
	}
	p[k] = v
	return nil
}

func parseIDs(value string) ([]int, error) {
	ids := []int{}
	if value == "" {
		return ids, nil
	}
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
