package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/docopt/docopt-go"

	"github.com/jupiterclapton/cenackle/livefeed/config"
	"github.com/jupiterclapton/cenackle/livefeed/internal/bootstrap"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/domain"
	"github.com/jupiterclapton/cenackle/livefeed/internal/core/services"
	"github.com/jupiterclapton/cenackle/livefeed/pkg/logger"
)

const FeedctlVersion = "0.1.0"

func main() {
	usage := `Live feed control.

Talks to the remote store configured by the environment
(STORE_BACKEND, NOTIFIER_BACKEND, DB_URL, REDIS_ADDR, NATS_URL).

Usage:
    feedctl list [--viewer=<viewer>] [--sort=<sort>]
    feedctl watch [--viewer=<viewer>] [--sort=<sort>]
    feedctl post <title> [<description>] --viewer=<viewer> [--name=<name>]
    feedctl like <post_id> --viewer=<viewer>
    feedctl dislike <post_id> --viewer=<viewer>
    feedctl edit <post_id> <title> [<description>] --viewer=<viewer>
    feedctl delete <post_id> --viewer=<viewer>

Options:
    -h --help             Show this screen.
    --version             Show version.
    --viewer=<viewer>     Viewer id. Omit to browse anonymously.
    --name=<name>         Display name used as author of a new post.
    --sort=<sort>         newest, oldest or mostLiked [default: newest].`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], FeedctlVersion)
	if err != nil {
		panic(err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}
	if err := checkBackend(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	logger.Init(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// checkBackend refuse le store en RAM : chaque exécution repartirait d'une collection vide.
func checkBackend(cfg *config.Config) error {
	if cfg.StoreBackend == config.BackendMemory {
		return fmt.Errorf("STORE_BACKEND=memory is process-local, feedctl needs a shared store (postgres or redis)")
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, opts docopt.Opts, out io.Writer) error {
	remote, err := bootstrap.OpenRemote(ctx, cfg)
	if err != nil {
		return err
	}
	defer remote.Close()

	store := services.NewFeedStore()
	bridge := services.NewSubscriptionBridge(remote.Store, store)
	handle, err := bridge.Start(ctx)
	if err != nil {
		return err
	}
	defer bridge.Stop(handle)

	loadCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
	defer cancel()
	if err := bridge.WaitLoaded(loadCtx); err != nil {
		return fmt.Errorf("feed not loaded: %w", err)
	}

	viewer, _ := opts.String("--viewer")
	feed := services.NewFeedService(store, bridge)
	reactions := services.NewReactionMutator(store, remote.Store)
	posts := services.NewPostService(store, remote.Store)

	switch {
	case flag(opts, "list"):
		sortKey, err := sortOption(opts)
		if err != nil {
			return err
		}
		printView(out, feed.Timeline(viewer, sortKey))
		return nil

	case flag(opts, "watch"):
		sortKey, err := sortOption(opts)
		if err != nil {
			return err
		}
		return watch(ctx, out, feed, viewer, sortKey)

	case flag(opts, "post"):
		title, _ := opts.String("<title>")
		description, _ := opts.String("<description>")
		name, _ := opts.String("--name")
		id, err := posts.CreatePost(ctx, domain.Viewer{ID: viewer, Name: name}, title, description)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, id)
		return nil

	case flag(opts, "like"):
		postID, _ := opts.String("<post_id>")
		return reactions.ToggleLike(ctx, postID, viewer)

	case flag(opts, "dislike"):
		postID, _ := opts.String("<post_id>")
		return reactions.ToggleDislike(ctx, postID, viewer)

	case flag(opts, "edit"):
		postID, _ := opts.String("<post_id>")
		title, _ := opts.String("<title>")
		description, _ := opts.String("<description>")
		return posts.EditPost(ctx, viewer, postID, title, description)

	case flag(opts, "delete"):
		postID, _ := opts.String("<post_id>")
		return posts.DeletePost(ctx, viewer, postID)
	}
	return nil
}

// watch réimprime la projection à chaque changement jusqu'à Ctrl-C.
func watch(ctx context.Context, out io.Writer, feed *services.FeedService, viewer string, sortKey domain.SortKey) error {
	changed := make(chan struct{}, 1)
	unwatch := feed.Watch(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unwatch()

	printView(out, feed.Timeline(viewer, sortKey))
	for {
		select {
		case <-ctx.Done():
			slog.Debug("Watch interrupted")
			return nil
		case <-changed:
			printView(out, feed.Timeline(viewer, sortKey))
		}
	}
}

func flag(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func sortOption(opts docopt.Opts) (domain.SortKey, error) {
	raw, _ := opts.String("--sort")
	sortKey, ok := domain.ParseSortKey(raw)
	if !ok {
		return "", fmt.Errorf("unknown sort %q", raw)
	}
	return sortKey, nil
}

func printView(out io.Writer, view domain.FeedView) {
	fmt.Fprintf(out, "== feed v%d (%s, sort=%s)\n", view.Version, view.Status, view.Sort)
	if view.NoPosts {
		fmt.Fprintln(out, "No posts yet.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if len(view.OwnPosts) > 0 {
		fmt.Fprintln(w, "-- your posts")
		for _, p := range view.OwnPosts {
			printPost(w, p)
		}
	}
	fmt.Fprintln(w, "-- others")
	if view.NoPostsFromOthers {
		fmt.Fprintln(w, "No posts from other users yet.")
	}
	for _, p := range view.OtherPosts {
		printPost(w, p)
	}
	_ = w.Flush()
}

func printPost(w io.Writer, p domain.PostView) {
	var marks []string
	if p.HasLiked {
		marks = append(marks, "liked")
	}
	if p.HasDisliked {
		marks = append(marks, "disliked")
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t+%d/-%d\t%s\t%s\n",
		p.ID, p.DisplayDate, p.AuthorName, p.LikeCount, p.DislikeCount, p.Title, strings.Join(marks, ","))
}
