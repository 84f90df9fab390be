package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sola-scriptura-text-search/internal/bible"
	"github.com/sola-scriptura-text-search/internal/reference"
)

func verseCMD() *cobra.Command {
	var (
		bibleName   string
		withContext bool
		corpus      []string
	)

	var cmd = &cobra.Command{
		Use:     "verse <reference>",
		Short:   "Print a verse, e.g. \"John 3:16\"",
		Example: "  scripture verse --bible KJV --context Gen 1:3",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), corpus)
			if err != nil {
				return err
			}
			defer s.Close()

			b, err := s.findBible(bibleName)
			if err != nil {
				return err
			}
			lv, err := reference.Lookup(b, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !withContext {
				printVerse(out, lv)
				return nil
			}
			t, _ := b.Triplet(lv.Book.Number, lv.Chapter.Number, lv.Verse.Number)
			if t.Previous != nil {
				printVerse(out, t.Previous)
			}
			printVerse(out, t.Current)
			if t.Next != nil {
				printVerse(out, t.Next)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&bibleName, "bible", "b", "", "bible name or id (default: first by name)")
	cmd.Flags().BoolVarP(&withContext, "context", "c", false, "also print the previous and next verses")
	cmd.Flags().StringSliceVar(&corpus, "corpus", nil, "extra corpus files or directories to load")

	return cmd
}

func printVerse(w io.Writer, lv *bible.LocatedVerse) {
	fmt.Fprintf(w, "%s\t%s\n", lv.Reference(), lv.Verse.Text)
}
