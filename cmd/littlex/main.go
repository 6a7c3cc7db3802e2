package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"littlex/internal/actions"
	"littlex/internal/api"
	"littlex/internal/cmdlog"
	"littlex/internal/config"
	"littlex/internal/jobs"
	"littlex/internal/metrics"
	"littlex/internal/model"
	"littlex/internal/notify"
	"littlex/internal/storage"
	"littlex/internal/store"
	"littlex/internal/theme"
	"littlex/internal/util"
	"littlex/internal/views"
)

func main() {
	_ = godotenv.Load()
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "register":
		cmdRegister()
	case "login":
		cmdLogin()
	case "logout":
		cmdLogout()
	case "whoami":
		cmdWhoami()
	case "feed":
		cmdFeed()
	case "post":
		cmdPost()
	case "edit":
		cmdEdit()
	case "rm":
		cmdRemove()
	case "like":
		cmdLike()
	case "unlike":
		cmdUnlike()
	case "comment":
		cmdComment()
	case "search":
		cmdSearch()
	case "profile":
		cmdProfile()
	case "suggest":
		cmdSuggest()
	case "follow":
		cmdFollow()
	case "unfollow":
		cmdUnfollow()
	case "notifications":
		cmdNotifications()
	case "watch":
		cmdWatch()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: littlex <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init           Create a config file at ./littlex.yaml")
	fmt.Println("  register       Create an account")
	fmt.Println("  login          Sign in and persist the session")
	fmt.Println("  logout         Clear session and notifications")
	fmt.Println("  whoami         Show the restored session")
	fmt.Println("  feed           Show the tweet feed")
	fmt.Println("  post           Create a tweet")
	fmt.Println("  edit           Edit a tweet by id")
	fmt.Println("  rm             Delete a tweet by id")
	fmt.Println("  like/unlike    Toggle a like on a tweet")
	fmt.Println("  comment        Add, edit, or remove a comment")
	fmt.Println("  search         Semantic search over the current feed")
	fmt.Println("  profile        Show or update your profile")
	fmt.Println("  suggest        Show who to follow")
	fmt.Println("  follow         Follow a user by id")
	fmt.Println("  unfollow       Unfollow a user by id")
	fmt.Println("  notifications  Show the notification log")
	fmt.Println("  watch          Keep the feed in sync on an interval")
}

type app struct {
	cfg config.Config
	db  *storage.DB
	d   *actions.Dispatcher
}

func bootstrap(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = config.Default()
		cfg.ResolveEnv()
	}
	db, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(cfg.Server.BaseURL, cfg.Timeout())
	d := actions.New(client, client, store.NewTweetStore(), store.NewSessionStore(), db, notify.New(db))
	metrics.StartServer(cfg.Metrics.Addr)
	d.Restore(ctx)
	return &app{cfg: cfg, db: db, d: d}, nil
}

func (a *app) close() { _ = a.db.Close() }

func (a *app) requireAuth() error {
	if a.d.Session().Snapshot().Status != store.StatusAuthenticated {
		return errors.New("not logged in; run: littlex login")
	}
	return nil
}

// parse reads common flags and boots the app for one command.
func parse(name string, args []string, register func(fs *flag.FlagSet)) (*app, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfgPath := fs.String("config", "./littlex.yaml", "config path")
	if register != nil {
		register(fs)
	}
	_ = fs.Parse(args)
	return bootstrap(context.Background(), *cfgPath)
}

func fatal(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./littlex.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fatal(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdRegister() {
	var email, password *string
	a, err := parse("register", os.Args[2:], func(fs *flag.FlagSet) {
		email = fs.String("email", "", "account email")
		password = fs.String("password", "", "account password")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	ctx := context.Background()
	err = cmdlog.Run("register", func() error { return a.d.Register(ctx, *email, *password) })
	if err != nil {
		fatal(err)
	}
	if a.d.Session().ConsumeIntent() == store.IntentLogin {
		fmt.Println("Registered. Now run: littlex login")
	}
}

func cmdLogin() {
	var email, password *string
	a, err := parse("login", os.Args[2:], func(fs *flag.FlagSet) {
		email = fs.String("email", "", "account email")
		password = fs.String("password", "", "account password")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	ctx := context.Background()
	err = cmdlog.Run("login", func() error { return a.d.Login(ctx, *email, *password) })
	if err != nil {
		fatal(err)
	}
	if a.d.Session().ConsumeIntent() == store.IntentHome {
		st := a.d.Session().Snapshot()
		fmt.Printf("Logged in as @%s\n", st.User.Username)
	}
}

func cmdLogout() {
	a, err := parse("logout", os.Args[2:], nil)
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := cmdlog.Run("logout", func() error { return a.d.Logout(context.Background()) }); err != nil {
		fatal(err)
	}
	fmt.Println("Logged out.")
}

func cmdWhoami() {
	a, err := parse("whoami", os.Args[2:], nil)
	if err != nil {
		fatal(err)
	}
	defer a.close()
	st := a.d.Session().Snapshot()
	if st.User == nil {
		fmt.Println("anonymous")
		return
	}
	fmt.Printf("@%s (%s)\n", st.User.Username, st.User.ID)
}

func cmdFeed() {
	a, err := parse("feed", os.Args[2:], nil)
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	if err := cmdlog.Run("feed", func() error { return jobs.RunRefreshOnce(ctx, a.d) }); err != nil {
		fatal(err)
	}
	ts := a.d.Tweets().Snapshot()
	menu := views.Menu(ts, a.d.Notifications(ctx))
	fmt.Printf("Feed: %d tweets | mine: %d | following: %d | suggestions: %d | notifications: %d\n",
		menu.Tweets, menu.MyTweets, menu.Following, menu.Suggestions, menu.Notifications)
	for _, t := range ts.Items {
		printTweet(t)
	}
}

func cmdPost() {
	var content *string
	a, err := parse("post", os.Args[2:], func(fs *flag.FlagSet) {
		content = fs.String("content", "", "tweet content")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	if util.NormalizeWhitespace(*content) == "" {
		fatal(errors.New("tweet content is empty"))
	}
	ctx := context.Background()
	err = cmdlog.Run("post", func() error {
		if err := a.d.GetProfile(ctx); err != nil {
			return err
		}
		return a.d.CreateTweet(ctx, *content)
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println(a.d.Tweets().SuccessMessage())
}

func cmdEdit() {
	var id, content *string
	a, err := parse("edit", os.Args[2:], func(fs *flag.FlagSet) {
		id = fs.String("id", "", "tweet id")
		content = fs.String("content", "", "new content")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	if err := cmdlog.Run("edit", func() error { return a.d.UpdateTweet(ctx, *id, *content) }); err != nil {
		fatal(err)
	}
	fmt.Println(a.d.Tweets().SuccessMessage())
}

func cmdRemove() {
	var id *string
	a, err := parse("rm", os.Args[2:], func(fs *flag.FlagSet) {
		id = fs.String("id", "", "tweet id")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	if err := cmdlog.Run("rm", func() error { return a.d.DeleteTweet(ctx, *id) }); err != nil {
		fatal(err)
	}
	fmt.Println(a.d.Tweets().SuccessMessage())
}

func cmdLike() {
	toggleLike("like", true)
}

func cmdUnlike() {
	toggleLike("unlike", false)
}

func toggleLike(name string, like bool) {
	var id *string
	a, err := parse(name, os.Args[2:], func(fs *flag.FlagSet) {
		id = fs.String("id", "", "tweet id")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	err = cmdlog.Run(name, func() error {
		if err := a.d.GetProfile(ctx); err != nil {
			return err
		}
		if like {
			return a.d.LikeTweet(ctx, *id)
		}
		return a.d.RemoveLike(ctx, *id)
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println(a.d.Tweets().SuccessMessage())
}

func cmdComment() {
	var tweetID, commentID, content *string
	var del *bool
	a, err := parse("comment", os.Args[2:], func(fs *flag.FlagSet) {
		tweetID = fs.String("tweet", "", "tweet id")
		commentID = fs.String("id", "", "comment id (edit/delete)")
		content = fs.String("content", "", "comment content")
		del = fs.Bool("rm", false, "delete the comment")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	err = cmdlog.Run("comment", func() error {
		if err := jobs.RunRefreshOnce(ctx, a.d); err != nil {
			return err
		}
		switch {
		case *del:
			return a.d.DeleteComment(ctx, *tweetID, *commentID)
		case *commentID != "":
			return a.d.UpdateComment(ctx, *tweetID, model.Comment{ID: *commentID, Content: *content})
		default:
			return a.d.AddComment(ctx, *tweetID, *content)
		}
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println(a.d.Tweets().SuccessMessage())
}

func cmdSearch() {
	var query *string
	a, err := parse("search", os.Args[2:], func(fs *flag.FlagSet) {
		query = fs.String("q", "", "search query")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	err = cmdlog.Run("search", func() error {
		if err := jobs.RunRefreshOnce(ctx, a.d); err != nil {
			return err
		}
		return a.d.Search(ctx, *query)
	})
	if err != nil {
		fatal(err)
	}
	ts := a.d.Tweets().Snapshot()
	if len(ts.SearchResult) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, m := range ts.SearchResult {
		fmt.Printf("similarity=%.2f\n", m.Similarity)
		printTweet(m.Tweet)
	}
}

func cmdProfile() {
	var username *string
	a, err := parse("profile", os.Args[2:], func(fs *flag.FlagSet) {
		username = fs.String("username", "", "new display name (empty shows the profile)")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	err = cmdlog.Run("profile", func() error {
		if err := a.d.GetProfile(ctx); err != nil {
			return err
		}
		if *username != "" {
			return a.d.UpdateProfile(ctx, *username)
		}
		return nil
	})
	if err != nil {
		fatal(err)
	}
	ts := a.d.Tweets().Snapshot()
	fmt.Printf("@%s (%s)\n", ts.Profile.User.Username, ts.Profile.User.ID)
	fmt.Printf("Following %d users:\n", len(ts.Profile.Following))
	for _, u := range ts.Profile.Following {
		fmt.Printf("  @%s (%s)\n", u.Username, u.ID)
	}
}

func cmdSuggest() {
	a, err := parse("suggest", os.Args[2:], nil)
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	if err := cmdlog.Run("suggest", func() error { return a.d.LoadUserProfiles(ctx) }); err != nil {
		fatal(err)
	}
	for _, u := range a.d.Tweets().Snapshot().UserProfiles {
		fmt.Printf("@%s (%s)\n", u.Username, u.ID)
	}
}

func cmdFollow() {
	toggleFollow("follow", true)
}

func cmdUnfollow() {
	toggleFollow("unfollow", false)
}

func toggleFollow(name string, follow bool) {
	var id *string
	a, err := parse(name, os.Args[2:], func(fs *flag.FlagSet) {
		id = fs.String("id", "", "user id")
	})
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx := context.Background()
	err = cmdlog.Run(name, func() error {
		if follow {
			return a.d.Follow(ctx, *id)
		}
		return a.d.Unfollow(ctx, *id)
	})
	if err != nil {
		fatal(err)
	}
	fmt.Println(a.d.Tweets().SuccessMessage())
}

func cmdNotifications() {
	a, err := parse("notifications", os.Args[2:], nil)
	if err != nil {
		fatal(err)
	}
	defer a.close()
	for _, n := range a.d.Notifications(context.Background()) {
		fmt.Printf("[%s] %-7s %s\n", n.Time, n.Status, n.Content)
	}
}

func cmdWatch() {
	a, err := parse("watch", os.Args[2:], nil)
	if err != nil {
		fatal(err)
	}
	defer a.close()
	if err := a.requireAuth(); err != nil {
		fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	theme.PrintBanner()
	fmt.Println("Watching feed every", a.cfg.SyncInterval())
	if err := jobs.RunRefreshLoop(ctx, a.d, a.cfg.SyncInterval()); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
}

func printTweet(t model.Tweet) {
	fmt.Printf("%s  @%s: %s\n", t.ID, t.Username, t.Content)
	if len(t.Likes) > 0 {
		fmt.Printf("    likes: %d\n", len(t.Likes))
	}
	for _, c := range t.Comments {
		fmt.Printf("    %s  @%s: %s\n", c.ID, c.Username, c.Content)
	}
}
