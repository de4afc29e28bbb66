package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/adapter"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/analysis"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/archive"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/graph"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/ingest"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/metrics"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/model"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/pipeline"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/store/relational"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/internal/twitter"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/config"
	"github.com/manuelmariscal/Twitter-Insights-Analyzer/pkg/logger"
)

// options are the parsed command-line flags
type options struct {
	fetchUser string
	loadFile  string
	limit     int
	noPublish bool
}

func main() {
	var opts options
	flag.StringVar(&opts.fetchUser, "fetch", "", "fetch recent tweets for this username from the live API")
	flag.StringVar(&opts.loadFile, "load", "", "load a previously archived JSON document from the data dir")
	flag.IntVar(&opts.limit, "limit", 0, "max tweets to fetch (defaults to FETCH_LIMIT)")
	flag.BoolVar(&opts.noPublish, "no-publish", false, "skip posting the generated summary after a fetch run")
	flag.Parse()

	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	// run owns every connection behind defers, so a failure anywhere still
	// releases both stores before the process exits.
	if err := run(opts); err != nil {
		logger.Get().Error("Run failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(opts options) error {
	log := logger.Get()

	if !exactlyOneMode(opts.fetchUser, opts.loadFile) {
		return fmt.Errorf("exactly one of --fetch or --load is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.limit <= 0 {
		opts.limit = cfg.FetchLimit
	}

	// Batch runs normally have no HTTP surface; expose the ingest metrics
	// only when an address is configured.
	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.Handler()); err != nil {
				log.Warn("Metrics listener stopped", zap.Error(err))
			}
		}()
	}

	store, err := relational.Open(cfg.SQLitePath, cfg.Policy)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	driver, err := graph.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(context.Background())

	graphRepo := graph.NewRepository(driver, cfg.Policy)
	if err := graphRepo.EnsureConstraints(ctx); err != nil {
		return err
	}

	pipe := pipeline.New(store, graphRepo)

	var client *twitter.HTTPClient
	var items []model.RawItem
	switch {
	case opts.fetchUser != "":
		if cfg.TwitterBearerToken == "" {
			return fmt.Errorf("TWITTER_BEARER_TOKEN is required for --fetch")
		}
		client = twitter.NewHTTPClient(cfg.TwitterBearerToken)
		items, err = fetchAndArchive(ctx, client, cfg, opts.fetchUser, opts.limit, log)
		if err != nil {
			return fmt.Errorf("failed to fetch tweets: %w", err)
		}
	default:
		items, err = archive.New(cfg.DataDir).Load(opts.loadFile)
		if err != nil {
			return fmt.Errorf("failed to load archived batch: %w", err)
		}
	}

	report, err := pipe.Ingest(ctx, items)
	if err != nil {
		// One store may have succeeded; print the report before exiting
		printJSON(report)
		return fmt.Errorf("batch ingestion failed: %w", err)
	}

	results := analysis.New(store).Run(ctx)
	printJSON(struct {
		Ingestion *pipeline.Report `json:"ingestion"`
		Analysis  analysis.Report  `json:"analysis"`
	}{report, results})

	if cfg.OpenAIAPIKey == "" {
		log.Info("OPENAI_API_KEY not set, skipping summary")
		return nil
	}

	summary, err := summarize(ctx, cfg, items)
	if err != nil {
		return fmt.Errorf("failed to generate summary: %w", err)
	}
	fmt.Println("\n--- Resumen ---")
	fmt.Println(summary)

	// Fetch runs post the summary back; load runs only print it.
	if client != nil && !opts.noPublish {
		if err := client.PostTweet(ctx, summary); err != nil {
			return fmt.Errorf("failed to post summary: %w", err)
		}
		log.Info("Summary posted")
	}
	return nil
}

// exactlyOneMode reports whether exactly one run mode was selected
func exactlyOneMode(fetchUser, loadFile string) bool {
	return (fetchUser == "") != (loadFile == "")
}

// fetchAndArchive pulls recent posts from the API and persists the raw batch
// so it can be replayed later with --load.
func fetchAndArchive(ctx context.Context, client *twitter.HTTPClient, cfg *config.Config, username string, limit int, log *zap.Logger) ([]model.RawItem, error) {
	pairs, err := client.FetchRecentPosts(ctx, username, limit)
	if err != nil {
		return nil, err
	}
	log.Info("Fetched recent posts", zap.String("username", username), zap.Int("count", len(pairs)))

	items := make([]model.RawItem, 0, len(pairs))
	for i := range pairs {
		items = append(items, model.RawItem{API: &pairs[i]})
	}

	var users []model.UserRecord
	var tweets []model.TweetRecord
	for _, item := range items {
		user, tweet, err := ingest.Canonicalize(item)
		if err != nil {
			continue
		}
		users = append(users, *user)
		tweets = append(tweets, *tweet)
	}
	if err := archive.New(cfg.DataDir).Save("tweets.json", users, tweets); err != nil {
		log.Warn("Failed to archive batch", zap.Error(err))
	}
	return items, nil
}

func summarize(ctx context.Context, cfg *config.Config, items []model.RawItem) (string, error) {
	var contents []string
	for _, item := range items {
		_, tweet, err := ingest.Canonicalize(item)
		if err != nil {
			continue
		}
		contents = append(contents, tweet.Content)
	}
	s := adapter.NewSummarizer(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	return s.Summarize(ctx, adapter.CombineTweets(contents))
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(out))
}
