package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/bootstrap"
	"github.com/sola-scriptura-text-search/internal/config"
)

func main() {
	_ = godotenv.Load()

	if err := rootCMD().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCMD() *cobra.Command {
	var root = &cobra.Command{
		Use:           "scripture",
		Short:         "Import, search and read bibles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(importCMD(), searchCMD(), verseCMD())
	return root
}

// session is the loaded search stack for one command
type session struct {
	cfg   *config.Config
	store *bootstrap.Store
	stack *bootstrap.Stack
}

// openSession loads the corpus paths and the configured store. Extra
// corpus paths given on the command line are loaded too.
func openSession(ctx context.Context, corpus []string) (*session, error) {
	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	logger := log.New("scripture")
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.Level())

	stack, err := bootstrap.NewStack(cfg, nil, logger)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	s := &session{cfg: cfg, store: store, stack: stack}
	if err := stack.Load(ctx, append(append([]string(nil), cfg.CorpusPaths...), corpus...), store); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	_ = s.stack.Close()
	if s.store != nil {
		_ = s.store.Close()
	}
}

// findBible resolves a bible by id or case-insensitive name; empty selects
// the first bible by name
func (s *session) findBible(name string) (*bible.Bible, error) {
	bibles := s.stack.Library.List()
	if len(bibles) == 0 {
		return nil, fmt.Errorf("no bibles loaded; set CORPUS_PATHS or STORAGE_BACKEND")
	}
	if name == "" {
		return bibles[0], nil
	}
	if id, err := uuid.Parse(name); err == nil {
		if b, ok := s.stack.Library.Get(id); ok {
			return b, nil
		}
	}
	for _, b := range bibles {
		if strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}
	return nil, fmt.Errorf("bible %q not found", name)
}
