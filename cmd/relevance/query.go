package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ricesearch/relevance/internal/query"
	"github.com/ricesearch/relevance/internal/search"
	"github.com/ricesearch/relevance/internal/synonym"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank the catalog against a query",
		Long: `Rank the catalog against a query and print the matching documents.

Queries support -negative terms, which drop any document carrying them, and
"quoted phrases", which a document's keywords must contain in order.

Examples:
  relevance search "contrato de trabajo"
  relevance search 'lease -commercial' --limit 5
  relevance search rent --explain residential-lease`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntP("limit", "n", 10, "maximum results")
	cmd.Flags().Int("per-category", 0, "maximum results per category (0 = no cap)")
	cmd.Flags().String("documents", "", "documents file (JSON or YAML), overrides the configured catalog")
	cmd.Flags().Bool("plain", false, "ignore query syntax and rank with the bare scorer")
	cmd.Flags().Bool("all", false, "include documents that scored zero")
	cmd.Flags().String("explain", "", "print the score breakdown for this document ID instead")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	perCategory, _ := cmd.Flags().GetInt("per-category")
	docsPath, _ := cmd.Flags().GetString("documents")
	plain, _ := cmd.Flags().GetBool("plain")
	all, _ := cmd.Flags().GetBool("all")
	explainID, _ := cmd.Flags().GetString("explain")

	a, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	docs, err := a.documents(docsPath)
	if err != nil {
		return err
	}
	catalog := search.NewCollection(docs)
	q := strings.Join(args, " ")
	out := cmd.OutOrStdout()

	if explainID != "" {
		doc, ok := catalog.Get(explainID)
		if !ok {
			return fmt.Errorf("document %q not found", explainID)
		}
		exp := a.engine.Explain(doc, q, nil)
		if a.format == "json" {
			return writeJSON(out, exp)
		}
		b := exp.Breakdown
		fmt.Fprintf(out, "%s  score %.4f\n", doc.ID, exp.Score)
		fmt.Fprintf(out, "  base:      %s\n", strings.Join(exp.Base, " "))
		fmt.Fprintf(out, "  synonyms:  %s\n", strings.Join(exp.Synonyms, " "))
		fmt.Fprintf(out, "  original:  keywords=%d name=%d description=%d\n", b.Original.Keywords, b.Original.Name, b.Original.Description)
		fmt.Fprintf(out, "  synonym:   keywords=%d name=%d description=%d\n", b.Synonym.Keywords, b.Synonym.Name, b.Synonym.Description)
		fmt.Fprintf(out, "  overlap:   %d\n", b.KeywordOverlap)
		return nil
	}

	opts := search.QueryOptions{
		Limit:            limit,
		MaxPerCategory:   perCategory,
		IncludeUnmatched: all,
	}
	var resp *search.QueryResponse
	if plain {
		results, total := search.Shape(a.engine.Rank(catalog, q, nil), opts)
		resp = &search.QueryResponse{Query: q, Results: results, Total: total}
	} else {
		resp = a.engine.Query(context.Background(), catalog, q, opts)
	}

	if a.format == "json" {
		return writeJSON(out, resp)
	}

	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No results.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tID\tCATEGORY\tNAME")
	for i, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\t%s\n", i+1, r.Score, r.DocumentID, r.Document.Category, r.Document.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d of %d matching documents", len(resp.Results), resp.Total)
	if resp.Excluded > 0 {
		fmt.Fprintf(out, ", %d excluded", resp.Excluded)
	}
	fmt.Fprintln(out)
	return nil
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <query>",
		Short: "Show how a query is parsed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			parsed := query.Parse(strings.Join(args, " "))
			validated := query.Validate(parsed, query.Limits{
				MaxTerms:      a.cfg.Query.MaxTerms,
				MaxTermLength: a.cfg.Query.MaxTermLength,
			})

			out := cmd.OutOrStdout()
			if a.format == "json" {
				return writeJSON(out, validated)
			}
			printParsed(out, validated)
			if validated.IsEmpty() {
				fmt.Fprintln(out, "(empty query)")
			}
			return nil
		},
	}
}

func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match <query>",
		Short: "Check a query against a keyword list",
		Long: `Check whether a keyword list satisfies a query: no negative term
present, every phrase covered, every positive term covered.

Example:
  relevance match 'rent "short term" -commercial' --keywords rent,short,term`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keywords, _ := cmd.Flags().GetStringSlice("keywords")

			a, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			p := query.Validate(query.Parse(strings.Join(args, " ")), query.Limits{
				MaxTerms:      a.cfg.Query.MaxTerms,
				MaxTermLength: a.cfg.Query.MaxTermLength,
			})
			result := struct {
				Matches          bool `json:"matches"`
				NegativeExcluded bool `json:"negative_excluded"`
				PhrasesCovered   bool `json:"phrases_covered"`
				PositivesCovered bool `json:"positives_covered"`
			}{
				Matches:          query.Matches(keywords, p),
				NegativeExcluded: query.NegativeExcluded(keywords, p),
				PhrasesCovered:   query.PhrasesCovered(keywords, p),
				PositivesCovered: query.PositivesCovered(keywords, p),
			}

			out := cmd.OutOrStdout()
			if a.format == "json" {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "matches:            %t\n", result.Matches)
			fmt.Fprintf(out, "negative excluded:  %t\n", result.NegativeExcluded)
			fmt.Fprintf(out, "phrases covered:    %t\n", result.PhrasesCovered)
			fmt.Fprintf(out, "positives covered:  %t\n", result.PositivesCovered)
			return nil
		},
	}

	cmd.Flags().StringSlice("keywords", nil, "comma-separated keyword list")
	return cmd
}

func expandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand <query>",
		Short: "Show the analyzed query and its synonym expansion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, nil)
			if err != nil {
				return err
			}

			base, expanded := a.engine.Expand(strings.Join(args, " "))
			synonyms := synonym.PureSynonyms(base, expanded)

			out := cmd.OutOrStdout()
			if a.format == "json" {
				return writeJSON(out, map[string][]string{
					"base":     base,
					"expanded": expanded,
					"synonyms": synonyms,
				})
			}
			fmt.Fprintf(out, "base:      %s\n", strings.Join(base, " "))
			fmt.Fprintf(out, "synonyms:  %s\n", strings.Join(synonyms, " "))
			return nil
		},
	}
}

func printParsed(w io.Writer, p query.Parsed) {
	fmt.Fprintf(w, "positive:  %s\n", strings.Join(p.Positive, ", "))
	fmt.Fprintf(w, "negatives: %s\n", strings.Join(p.Negatives, ", "))
	quoted := make([]string, len(p.Phrases))
	for i, ph := range p.Phrases {
		quoted[i] = fmt.Sprintf("%q", ph)
	}
	fmt.Fprintf(w, "phrases:   %s\n", strings.Join(quoted, ", "))
}
