// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/mdhender/snippet"
	"github.com/mdhender/snippet/config"
	"github.com/mdhender/snippet/pipelines/stages"
	"github.com/mdhender/snippet/renderer"
	store "github.com/mdhender/snippet/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var errFailed = errors.New("one or more files failed")

func main() {
	addFlags := func(cmd *cobra.Command) error {
		cmd.PersistentFlags().StringP("config-file", "c", "", "load configuration from file")
		cmd.PersistentFlags().Bool("debug", false, "log debugging information")
		cmd.PersistentFlags().Bool("log-with-default-flags", false, "log with default flags")
		cmd.PersistentFlags().Bool("log-with-shortfile", false, "log with short file name")
		cmd.PersistentFlags().Bool("log-with-timestamp", false, "log with timestamp")
		cmd.PersistentFlags().Bool("quiet", false, "log less information")
		cmd.PersistentFlags().Bool("show-version", false, "show version")
		cmd.PersistentFlags().Bool("verbose", false, "log more information")
		return nil
	}
	var cmdRoot = &cobra.Command{
		Use:   "snippet",
		Short: "Snippet language tools",
		Long:  `Tokenize, parse, check and index snippet source files`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logWithDefaultFlags, _ := cmd.Flags().GetBool("log-with-default-flags")
			logWithShortFileName, _ := cmd.Flags().GetBool("log-with-shortfile")
			logWithTimestamp, _ := cmd.Flags().GetBool("log-with-timestamp")
			logFlags := 0
			if logWithShortFileName {
				logFlags |= log.Lshortfile
			}
			if logWithTimestamp {
				logFlags |= log.Ltime
			}
			if logWithDefaultFlags {
				logFlags = log.LstdFlags
			}
			log.SetFlags(logFlags)

			if showVersion, _ := cmd.Flags().GetBool("show-version"); showVersion {
				fmt.Printf("snippet: version %q\n", snippet.Version().Core())
			}

			return nil
		},
	}
	cmdRoot.AddCommand(cmdLex())
	cmdRoot.AddCommand(cmdParse())
	cmdRoot.AddCommand(cmdCheck())
	cmdRoot.AddCommand(cmdIndex())
	cmdRoot.AddCommand(cmdInitDB())
	cmdRoot.AddCommand(cmdFind())
	cmdRoot.AddCommand(cmdVersion())
	if err := addFlags(cmdRoot); err != nil {
		log.Fatal(err)
	}

	if err := cmdRoot.Execute(); err != nil {
		os.Exit(1)
	}
}

// settings is what every command needs from the persistent flags and
// the config file.
type settings struct {
	cfg    *config.Config
	logger *slog.Logger
	quiet  bool
}

func loadSettings(cmd *cobra.Command) (*settings, error) {
	quiet, _ := cmd.Flags().GetBool("quiet")
	verbose, _ := cmd.Flags().GetBool("verbose")
	debug, _ := cmd.Flags().GetBool("debug")
	if quiet {
		verbose, debug = false, false
	}

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	} else if verbose {
		level = slog.LevelInfo
	}
	s := &settings{
		cfg:    config.Default(),
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
		quiet:  quiet,
	}

	if configFile, _ := cmd.Flags().GetString("config-file"); configFile != "" {
		cfg, err := config.Load(afero.NewOsFs(), configFile)
		if err != nil {
			return nil, err
		}
		s.cfg = cfg
	}
	return s, nil
}

// rendererFor builds a renderer, letting a non-empty format flag
// override the config file.
func (s *settings) rendererFor(format, sourceName string) (*renderer.Renderer, error) {
	if format == "" {
		format = s.cfg.Output.Format
	}
	f, err := renderer.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return renderer.New(
		renderer.WithFormat(f),
		renderer.WithColor(s.cfg.Output.Color),
		renderer.WithSourceName(sourceName),
	)
}

// snippetOptions returns the lexer and parser options for one source.
func (s *settings) snippetOptions(name, eof string) ([]snippet.Option, error) {
	policy := s.cfg.EOFPolicy()
	if eof != "" {
		var err error
		if policy, err = snippet.ParseEOFPolicy(eof); err != nil {
			return nil, err
		}
	}
	return []snippet.Option{
		snippet.WithName(name),
		snippet.WithLogger(s.logger),
		snippet.WithEOFPolicy(policy),
	}, nil
}

// openStore opens the index database, or an in-memory one when path is empty.
func openStore(path string) (*store.SQLiteStore, error) {
	if path == "" {
		return store.NewSQLiteStore()
	}
	return store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: path})
}

func cmdLex() *cobra.Command {
	var eof string
	var format string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&eof, "eof", eof, "end of input policy (terminate, unknown, error)")
		cmd.Flags().StringVarP(&format, "format", "f", format, "output format (text, json, yaml)")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "lex <source-file>",
		Short:        "print the tokens in a source file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			r, err := s.rendererFor(format, args[0])
			if err != nil {
				return err
			}
			options, err := s.snippetOptions(args[0], eof)
			if err != nil {
				return err
			}

			input, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			started := time.Now()
			tokens, err := snippet.Tokenize(input, options...)
			if err != nil {
				_ = r.Diagnostic(os.Stderr, err, input)
				return errFailed
			}
			s.logger.Info("lex: done", "source", args[0], "tokens", len(tokens), "elapsed", time.Since(started))
			return r.Tokens(os.Stdout, input, tokens)
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdParse() *cobra.Command {
	var eof string
	var format string
	var outputFile string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&eof, "eof", eof, "end of input policy (terminate, unknown, error)")
		cmd.Flags().StringVarP(&format, "format", "f", format, "output format (text, json, yaml)")
		cmd.Flags().StringVarP(&outputFile, "output", "o", outputFile, "save tree to file")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "parse <source-file>",
		Short:        "print the declaration tree of a source file",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			r, err := s.rendererFor(format, args[0])
			if err != nil {
				return err
			}
			options, err := s.snippetOptions(args[0], eof)
			if err != nil {
				return err
			}

			input, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			_, root, err := snippet.ParseSource(input, options...)
			if err != nil {
				_ = r.Diagnostic(os.Stderr, err, input)
				return errFailed
			}

			var w io.Writer = os.Stdout
			if outputFile != "" {
				fd, err := os.Create(outputFile)
				if err != nil {
					return err
				}
				defer fd.Close()
				w = fd
			}
			if err := r.Tree(w, root); err != nil {
				return err
			}
			if outputFile != "" && !s.quiet {
				log.Printf("%s: wrote tree for %s\n", outputFile, args[0])
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdCheck() *cobra.Command {
	var eof string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&eof, "eof", eof, "end of input policy (terminate, unknown, error)")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "check <source-file> [<source-file>...]",
		Short:        "report syntax errors in source files",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				r, err := s.rendererFor("text", path)
				if err != nil {
					return err
				}
				options, err := s.snippetOptions(path, eof)
				if err != nil {
					return err
				}
				input, err := os.ReadFile(path)
				if err != nil {
					_ = r.Diagnostic(os.Stderr, err, nil)
					failed++
					continue
				}
				if _, _, err := snippet.ParseSource(input, options...); err != nil {
					_ = r.Diagnostic(os.Stderr, err, input)
					failed++
					continue
				}
				if !s.quiet {
					log.Printf("%s: ok\n", path)
				}
			}
			if failed != 0 {
				log.Printf("check: %d of %d files failed\n", failed, len(args))
				return errFailed
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdIndex() *cobra.Command {
	var dbPath string
	var eof string
	retry := false
	showDBStats := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&dbPath, "db", dbPath, "index database (default is in-memory)")
		cmd.Flags().StringVar(&eof, "eof", eof, "end of input policy (terminate, unknown, error)")
		cmd.Flags().BoolVar(&retry, "retry", retry, "requeue failed sources before indexing")
		cmd.Flags().BoolVar(&showDBStats, "show-db-stats", showDBStats, "dump row counts from each table")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "index <source-file> [<source-file>...]",
		Short:        "parse source files into the declaration index",
		SilenceUsage: true,
		Args:         cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = s.cfg.Index.Database
			}
			options, err := s.snippetOptions("", eof)
			if err != nil {
				return err
			}

			db, err := openStore(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			svc := stages.NewIndexService(db, s.logger, options...)
			failures := 0
			if retry {
				processed, failed, err := svc.Retry(ctx)
				if err != nil {
					return err
				}
				log.Printf("retry: %d processed, %d failed\n", processed, failed)
				failures += failed
			}

			started := time.Now()
			report, err := svc.Index(ctx, args)
			if err != nil {
				return err
			}

			for _, result := range report.Results {
				if result.Duplicate && !s.quiet {
					log.Printf("%s: unchanged\n", result.Path)
				}
			}
			// unchanged sources keep the failures of the run that parsed them
			for _, f := range report.Failures {
				log.Printf("%s: %s\n", f.Code, f.Message)
				failures++
			}
			log.Printf("index: run %s: %d files, %d processed, %d failed in %v\n",
				report.RunID, len(report.Results), report.Processed, report.Failed, time.Since(started))

			if showDBStats {
				stats, err := db.TableStats(ctx)
				if err != nil {
					return fmt.Errorf("get table stats: %w", err)
				}
				log.Println("database stats:")
				tables := make([]string, 0, len(stats))
				for table := range stats {
					tables = append(tables, table)
				}
				sort.Strings(tables)
				for _, table := range tables {
					log.Printf("  %-20s %d rows\n", table, stats[table])
				}
			}

			if failures != 0 {
				return errFailed
			}
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdInitDB() *cobra.Command {
	compact := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&compact, "compact", compact, "compact an existing database instead")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "init-db <database-file>",
		Short:        "create an empty index database",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if compact {
				if err := store.CompactDatabase(args[0]); err != nil {
					return err
				}
				log.Printf("%s: compacted\n", args[0])
				return nil
			}
			if err := store.InitDatabase(args[0]); err != nil {
				return err
			}
			log.Printf("%s: created\n", args[0])
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdFind() *cobra.Command {
	var dbPath string
	var format string
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().StringVar(&dbPath, "db", dbPath, "index database")
		cmd.Flags().StringVarP(&format, "format", "f", format, "output format (text, json, yaml)")
		return nil
	}
	var cmd = &cobra.Command{
		Use:          "find <name>",
		Short:        "list the declarations of a name in the index",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = s.cfg.Index.Database
			}
			if dbPath == "" {
				return fmt.Errorf("find: --db is required")
			}
			r, err := s.rendererFor(format, dbPath)
			if err != nil {
				return err
			}

			db, err := openStore(dbPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer db.Close()

			decls, err := db.FindDeclarations(ctx, args[0])
			if err != nil {
				return err
			}
			paths := map[int64]string{}
			for _, d := range decls {
				if _, ok := paths[d.SourceID]; ok {
					continue
				}
				src, err := db.GetSourceByID(ctx, d.SourceID)
				if err != nil {
					return err
				} else if src != nil {
					paths[d.SourceID] = src.Path
				}
			}
			return r.Declarations(os.Stdout, decls, paths)
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}

func cmdVersion() *cobra.Command {
	showBuildInfo := false
	addFlags := func(cmd *cobra.Command) error {
		cmd.Flags().BoolVar(&showBuildInfo, "build-info", showBuildInfo, "show build information")
		return nil
	}
	var cmd = &cobra.Command{
		Use:   "version",
		Short: "display the application's version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showBuildInfo {
				fmt.Println(snippet.Version().String())
				return nil
			}
			fmt.Println(snippet.Version().Core())
			return nil
		},
	}
	if err := addFlags(cmd); err != nil {
		log.Fatal(err)
	}
	return cmd
}
