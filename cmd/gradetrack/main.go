package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/gradetrack/internal/exams"
	"github.com/pavelanni/gradetrack/internal/grade"
	"github.com/pavelanni/gradetrack/internal/handler"
	appI18n "github.com/pavelanni/gradetrack/internal/i18n"
	"github.com/pavelanni/gradetrack/internal/metrics"
	"github.com/pavelanni/gradetrack/internal/model"
	"github.com/pavelanni/gradetrack/internal/store"
	"github.com/pavelanni/gradetrack/internal/validate"
)

func main() {
	// A missing .env is fine; flags, env and config files still apply.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradetrack",
		Short: "Track exams and evaluate scores against their passing thresholds",
	}

	serve := serveCmd()
	root.AddCommand(serve, listCmd(), subjectsCmd(), addCmd(), deleteCmd(), gradeCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `gradetrack --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// commonFlags registers the storage, language and logging flags every command shares.
func commonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("storage", "sqlite", "Storage backend (sqlite, redis, memory)")
	f.String("db", "gradetrack.db", "SQLite database path")
	f.String("redis-url", "redis://localhost:6379/0", "Redis URL for --storage redis")
	f.String("key", store.DefaultKey, "Key the exam collection is stored under")
	f.StringP("lang", "l", appI18n.DefaultLang, "Message language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	cmd.Flags().StringP("addr", "a", ":8080", "HTTP listen address")
	commonFlags(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List exams, optionally filtered",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	f := cmd.Flags()
	f.StringP("query", "q", "", "Case-insensitive search over title, course and year")
	f.StringP("subject", "s", "", "Show only exams of this course")
	commonFlags(cmd)
	return cmd
}

func subjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List the distinct courses of all exams",
		Args:  cobra.NoArgs,
		RunE:  runSubjects,
	}
	commonFlags(cmd)
	return cmd
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new exam",
		Args:  cobra.NoArgs,
		RunE:  runAdd,
	}
	f := cmd.Flags()
	f.String("title", "", "Exam title")
	f.String("year", "", "Year of study, e.g. \"YR 2\"")
	f.String("due", "", "Due date, e.g. \"November 25, 2025\"")
	f.String("weight", "", "Weight as a percentage, e.g. 35%")
	f.Float64("max-points", 100, "Maximum points")
	f.Float64("threshold", 50, "Passing threshold in percent (0-100)")
	f.String("course", "", "Course name")
	f.String("description", "", "Free-form description")
	f.String("status", model.StatusNotAttempted, "Exam status")
	f.Bool("visible", true, "Whether the exam is visible")
	commonFlags(cmd)
	return cmd
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <exam-id>",
		Short: "Delete an exam",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	commonFlags(cmd)
	return cmd
}

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade <exam-id> <score>",
		Short: "Evaluate a score against an exam's passing threshold",
		Args:  cobra.ExactArgs(2),
		RunE:  runGrade,
	}
	commonFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all exams as JSON",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	commonFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("GRADETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradetrack")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradetrack")
	v.AddConfigPath("/etc/gradetrack")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// setup configures logging and i18n and returns the command's configuration.
func setup(cmd *cobra.Command) (*viper.Viper, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	if err := appI18n.Init(v.GetString("lang")); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	return v, nil
}

// openBackend builds the storage backend selected by --storage.
func openBackend(ctx context.Context, v *viper.Viper) (store.Backend, error) {
	switch kind := strings.ToLower(v.GetString("storage")); kind {
	case "sqlite", "":
		db, err := store.NewSQLite(v.GetString("db"))
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	case "redis":
		rdb, err := store.NewRedis(ctx, v.GetString("redis-url"))
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return rdb, nil
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want sqlite, redis or memory)", kind)
	}
}

// openStore opens the backend and loads the exam collection from it.
// The caller must close the returned adapter.
func openStore(ctx context.Context, v *viper.Viper, rec *metrics.Recorder) (*exams.Store, *store.Adapter, error) {
	backend, err := openBackend(ctx, v)
	if err != nil {
		return nil, nil, err
	}
	adapter := store.NewAdapter(backend, v.GetString("key"), rec)
	s := exams.New(adapter, exams.WithMetrics(rec))
	loaded := s.Initialize(ctx)
	slog.Debug("loaded exams", "storage", v.GetString("storage"), "key", adapter.Key(), "count", len(loaded))
	return s, adapter, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	s, adapter, err := openStore(ctx, v, rec)
	if err != nil {
		return err
	}
	defer adapter.Close()

	lang := v.GetString("lang")
	h := handler.New(s, validate.New())

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"storage", v.GetString("storage"),
		"key", adapter.Key(),
		"lang", lang,
		"exams", len(s.Exams()),
	)
	return http.ListenAndServe(addr, r)
}

func runList(cmd *cobra.Command, _ []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := appI18n.WithLang(cmd.Context(), v.GetString("lang"))

	s, adapter, err := openStore(ctx, v, nil)
	if err != nil {
		return err
	}
	defer adapter.Close()

	query, subject := v.GetString("query"), v.GetString("subject")
	s.SetFilters(model.FilterPatch{Query: &query, Subject: &subject})
	shown := s.Filtered()

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tYEAR\tCOURSE\tDUE\tWEIGHT\tPASS\tSTATUS")
	for _, e := range shown {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%g%%\t%s\n",
			e.ID, e.Title, e.Year, e.Course, e.DateDue, e.Weight, e.PassingThreshold, e.Status)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, err = fmt.Fprintln(out, appI18n.Tp(ctx, "ExamsShown", len(shown)))
	return err
}

func runSubjects(cmd *cobra.Command, _ []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	s, adapter, err := openStore(cmd.Context(), v, nil)
	if err != nil {
		return err
	}
	defer adapter.Close()

	for _, subj := range s.Subjects() {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), subj); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}

func runAdd(cmd *cobra.Command, _ []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := appI18n.WithLang(cmd.Context(), v.GetString("lang"))

	d, errs := validate.New().Draft(ctx, model.Draft{
		Title:            v.GetString("title"),
		Year:             v.GetString("year"),
		DateDue:          v.GetString("due"),
		Weight:           v.GetString("weight"),
		MaxPoints:        v.GetFloat64("max-points"),
		PassingThreshold: v.GetFloat64("threshold"),
		Status:           v.GetString("status"),
		Course:           v.GetString("course"),
		Description:      v.GetString("description"),
		Visible:          v.GetBool("visible"),
	})
	if errs != nil {
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f, errs[f])
		}
		return errs
	}

	s, adapter, err := openStore(ctx, v, nil)
	if err != nil {
		return err
	}
	defer adapter.Close()

	e := s.Create(ctx, d)
	slog.Info("created exam", "id", e.ID, "title", e.Title)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), e.ID)
	return err
}

func runDelete(cmd *cobra.Command, args []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, adapter, err := openStore(ctx, v, nil)
	if err != nil {
		return err
	}
	defer adapter.Close()

	if !s.Delete(ctx, args[0]) {
		slog.Warn("no exam with that id", "id", args[0])
		return nil
	}
	slog.Info("deleted exam", "id", args[0])
	return nil
}

func runGrade(cmd *cobra.Command, args []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := appI18n.WithLang(cmd.Context(), v.GetString("lang"))

	s, adapter, err := openStore(ctx, v, nil)
	if err != nil {
		return err
	}
	defer adapter.Close()

	exam, ok := s.Get(args[0])
	if !ok {
		return errors.New(appI18n.T(ctx, "ExamNotFound"))
	}

	score, err := grade.ParseScore(args[1])
	if err != nil {
		return errors.New(appI18n.T(ctx, "ValidNumber"))
	}
	res, err := grade.Evaluate(score, exam)
	var re *grade.RangeError
	switch {
	case errors.As(err, &re):
		return errors.New(appI18n.Td(ctx, "ScoreRange", map[string]any{"Min": re.Min, "Max": re.Max}))
	case errors.Is(err, grade.ErrInvalidExam):
		return errors.New(appI18n.T(ctx, "InvalidExam"))
	case err != nil:
		return errors.New(appI18n.T(ctx, "ValidNumber"))
	}

	label := appI18n.T(ctx, "Fail")
	if res.Passed {
		label = appI18n.T(ctx, "Pass")
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s%% (%g%% needed) %s\n",
		exam.Title, res.Display(), res.Threshold, label)
	return err
}

func runExport(cmd *cobra.Command, _ []string) error {
	v, err := setup(cmd)
	if err != nil {
		return err
	}
	s, adapter, err := openStore(cmd.Context(), v, nil)
	if err != nil {
		return err
	}
	defer adapter.Close()

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := s.WriteExport(w); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	slog.Info("exported exams", "count", len(s.Exams()), "output", outPath)
	return nil
}
