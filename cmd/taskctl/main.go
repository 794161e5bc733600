package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yukikurage/task-tracker/internal/client"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/listing"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/session"
)

const usage = `commands:
  search <text>        filter by title or description (empty clears)
  status <value|all>   todo, in-progress, review, done
  priority <value|all> low, medium, high
  more                 load the next page
  rm <n>               delete the n-th task shown
  refresh              reload from the first page
  quit`

func main() {
	_ = godotenv.Load(".env")

	addr := flag.String("addr", envOr("TASKCTL_ADDR", "http://localhost:8080"), "API base URL")
	email := flag.String("email", os.Getenv("TASKCTL_EMAIL"), "account email")
	pageSize := flag.Int("page-size", constants.DefaultPageSize, "tasks per page")
	verbose := flag.Bool("v", false, "log requests")
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.New(logger.Config{Level: level, Encoding: "console"})
	defer log.Sync()

	password := os.Getenv("TASKCTL_PASSWORD")
	if *email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "set -email (or TASKCTL_EMAIL) and TASKCTL_PASSWORD")
		os.Exit(2)
	}

	api, err := client.New(*addr, 15*time.Second)
	if err != nil {
		log.Fatal("invalid address", zap.Error(err))
	}

	ctx := context.Background()
	principal, err := api.Login(ctx, *email, password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	out := &screen{w: os.Stdout}
	tracker := session.NewTracker(nil)
	controller := listing.New(api, tracker,
		listing.WithPageSize(*pageSize),
		listing.WithLogger(log),
		listing.WithOnChange(out.render),
	)
	defer controller.Close()

	controller.Start()
	tracker.SignIn(*principal)

	fmt.Println(usage)
	repl(ctx, os.Stdin, api, controller, out)

	if err := api.Logout(ctx); err != nil {
		log.Warn("logout failed", zap.Error(err))
	}
	tracker.SignOut()
}

func repl(ctx context.Context, in io.Reader, api *client.Client, controller *listing.Controller, out *screen) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
		case "search":
			controller.SetSearch(arg)
		case "status":
			status, err := models.ParseStatusFilter(arg)
			if err != nil {
				out.printf("%v\n", err)
				continue
			}
			controller.SetStatus(status)
		case "priority":
			priority, err := models.ParsePriorityFilter(arg)
			if err != nil {
				out.printf("%v\n", err)
				continue
			}
			controller.SetPriority(priority)
		case "more":
			if !controller.LoadMore() {
				out.printf("nothing more to load\n")
			}
		case "rm":
			removeTask(ctx, api, controller, arg, out)
		case "refresh":
			controller.Refresh()
		case "quit", "exit":
			return
		default:
			out.printf("%s\n", usage)
		}
	}
}

func removeTask(ctx context.Context, api *client.Client, controller *listing.Controller, arg string, out *screen) {
	n, err := strconv.Atoi(arg)
	tasks := controller.State().Tasks
	if err != nil || n < 1 || n > len(tasks) {
		out.printf("rm expects a row number between 1 and %d\n", len(tasks))
		return
	}
	task := tasks[n-1]
	if err := api.Delete(ctx, task.ID); err != nil {
		out.printf("delete failed: %v\n", err)
		return
	}
	controller.Remove(task.ID)
}

// screen serializes output from the prompt and from list updates
type screen struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *screen) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

func (s *screen) render(state listing.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch state.Phase {
	case listing.PhaseIdle:
		fmt.Fprintln(s.w, "(signed out)")
		return
	case listing.PhaseLoadingInitial:
		fmt.Fprintln(s.w, "loading...")
		return
	case listing.PhaseLoadingMore:
		return
	}

	if state.Err != nil {
		fmt.Fprintf(s.w, "error: %v\n", state.Err)
	}
	f := state.Filter
	fmt.Fprintf(s.w, "-- search=%q status=%s priority=%s  %d of %d --\n",
		f.Search, f.Status, f.Priority, len(state.Tasks), state.TotalCount)
	for i, t := range state.Tasks {
		fmt.Fprintf(s.w, "%3d. [%-11s] %-6s %s\n", i+1, t.Status, t.Priority, t.Title)
	}
	if state.HasMore {
		fmt.Fprintln(s.w, "-- more available --")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
