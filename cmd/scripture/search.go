package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sola-scriptura-text-search/internal/models"
)

func searchCMD() *cobra.Command {
	var (
		searchType string
		limit      int
		bibleName  string
		book       int
		corpus     []string
	)

	var cmd = &cobra.Command{
		Use:   "search <query>...",
		Short: "Search verse text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, corpus)
			if err != nil {
				return err
			}
			defer s.Close()

			criteria := models.SearchCriteria{
				Text:       strings.Join(args, " "),
				Type:       models.SearchType(searchType),
				MaxResults: limit,
				BookNumber: book,
			}
			if bibleName != "" {
				b, err := s.findBible(bibleName)
				if err != nil {
					return err
				}
				criteria.BibleID = b.ID
			}

			rs, err := s.stack.Search.SearchAsync(ctx, criteria).Wait(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range rs.Results {
				fmt.Fprintf(out, "%s %s %d:%s\t%s\n", r.Bible.Name, r.Book.Name, r.Chapter.Number, r.Verse.Number, highlight(r))
			}
			more := ""
			if rs.HasMore {
				more = ", more available"
			}
			fmt.Fprintf(out, "%d of %d matches%s\n", rs.Len(), rs.Total, more)
			return nil
		},
	}
	cmd.Flags().StringVarP(&searchType, "type", "t", string(models.SearchTypeAnyWord), "PHRASE, ALL_WORDS or ANY_WORD")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	cmd.Flags().StringVarP(&bibleName, "bible", "b", "", "restrict to a bible, by name or id")
	cmd.Flags().IntVar(&book, "book", 0, "restrict to a book number")
	cmd.Flags().StringSliceVar(&corpus, "corpus", nil, "extra corpus files or directories to load")

	return cmd
}

// highlight renders the matched fragments with the terms in brackets
func highlight(r models.BibleSearchResult) string {
	if len(r.Matches) == 0 {
		return r.Verse.Text
	}
	text := r.Matches[0].MatchedText
	text = strings.ReplaceAll(text, models.HighlightBefore, "[")
	return strings.ReplaceAll(text, models.HighlightAfter, "]")
}
