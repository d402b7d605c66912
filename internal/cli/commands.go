package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jengzang/crime-eda-backend-go/internal/models"
	"github.com/jengzang/crime-eda-backend-go/internal/presentation"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func (r *RootCmd) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show row, category and area counts of the cleaned dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := r.aggregates(cmd)
			if err != nil {
				return err
			}
			summary, err := svc.Summary()
			if err != nil {
				return err
			}
			if format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), summary)
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func renderSummary(w io.Writer, s models.DatasetSummary) {
	table := newTable(w, []string{"Field", "Value"})
	table.Append([]string{"Incidents", strconv.Itoa(s.Incidents)})
	table.Append([]string{"Categories", strconv.Itoa(s.Categories)})
	table.Append([]string{"Areas", strconv.Itoa(s.Areas)})
	if !s.FirstDate.IsZero() {
		table.Append([]string{"First date", s.FirstDate.Format("2006-01-02")})
		table.Append([]string{"Last date", s.LastDate.Format("2006-01-02")})
	}
	table.Render()
}

func (r *RootCmd) periodsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Show incident counts per period",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter models.PeriodFilter
			var err error
			if filter.Granularity, err = cmd.Flags().GetString("granularity"); err != nil {
				return fmt.Errorf("failed to get granularity flag: %w", err)
			}
			if filter.From, err = cmd.Flags().GetString("from"); err != nil {
				return fmt.Errorf("failed to get from flag: %w", err)
			}
			if filter.To, err = cmd.Flags().GetString("to"); err != nil {
				return fmt.Errorf("failed to get to flag: %w", err)
			}

			svc, format, err := r.aggregates(cmd)
			if err != nil {
				return err
			}
			counts, err := svc.PeriodCounts(filter)
			if err != nil {
				return err
			}
			if format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), counts)
			}

			table := newTable(cmd.OutOrStdout(), []string{"Period start", "Incidents"})
			for _, p := range counts {
				table.Append([]string{p.PeriodStart.Format("2006-01-02"), strconv.Itoa(p.Count)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().String("granularity", string(models.GranularityMonth), "day, week, month, quarter or year")
	cmd.Flags().String("from", "", "first date, YYYY-MM-DD")
	cmd.Flags().String("to", "", "last date, YYYY-MM-DD")
	return cmd
}

func (r *RootCmd) topCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank categories by cumulative incidents in a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := cmd.Flags().GetInt("year")
			if err != nil {
				return fmt.Errorf("failed to get year flag: %w", err)
			}
			limit, err := cmd.Flags().GetInt("limit")
			if err != nil {
				return fmt.Errorf("failed to get limit flag: %w", err)
			}

			svc, format, err := r.aggregates(cmd)
			if err != nil {
				return err
			}
			top, err := svc.TopCategories(models.RankingFilter{Year: year, Limit: limit})
			if err != nil {
				return err
			}
			if format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), top)
			}

			table := newTable(cmd.OutOrStdout(), []string{"Rank", "Category", "Incidents " + strconv.Itoa(top.Year)})
			for _, c := range top.Categories {
				table.Append([]string{strconv.Itoa(c.Rank), c.Category, strconv.Itoa(c.Cumulative)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("year", 0, "ranking year, 0 for the most recent")
	cmd.Flags().Int("limit", 0, "number of categories, 0 for the default")
	return cmd
}

func (r *RootCmd) densityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "density",
		Short: "Show incidents per square kilometre by community area",
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter models.DensityFilter
			var err error
			if filter.Year, err = cmd.Flags().GetInt("year"); err != nil {
				return fmt.Errorf("failed to get year flag: %w", err)
			}
			if filter.AreaNumber, err = cmd.Flags().GetInt("area"); err != nil {
				return fmt.Errorf("failed to get area flag: %w", err)
			}

			svc, format, err := r.aggregates(cmd)
			if err != nil {
				return err
			}
			density, err := svc.Density(filter)
			if err != nil {
				return err
			}
			if format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), density)
			}

			table := newTable(cmd.OutOrStdout(), []string{"Area", "Community", "Year", "Incidents", "km²", "Per km²"})
			for _, d := range density.Rows {
				perKm2 := "-"
				if d.PerKm2 != nil {
					perKm2 = strconv.FormatInt(*d.PerKm2, 10)
				}
				table.Append([]string{
					strconv.Itoa(d.AreaNumber),
					d.Community,
					strconv.Itoa(d.Year),
					strconv.Itoa(d.Incidents),
					strconv.FormatFloat(d.AreaKm2, 'f', 2, 64),
					perKm2,
				})
			}
			table.Render()
			if density.Unmatched > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d incidents reference unknown areas\n", density.Unmatched)
			}
			return nil
		},
	}
	cmd.Flags().Int("year", 0, "only this year")
	cmd.Flags().Int("area", 0, "only this community area number")
	return cmd
}

func (r *RootCmd) timeOfDayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeofday",
		Short: "Show the time-of-day split of the top categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, format, err := r.aggregates(cmd)
			if err != nil {
				return err
			}
			dist, err := svc.TimeOfDay()
			if err != nil {
				return err
			}
			if format == FormatJSON {
				return writeJSON(cmd.OutOrStdout(), dist)
			}
			renderTimeOfDay(cmd.OutOrStdout(), dist)
			return nil
		},
	}
}

func renderTimeOfDay(w io.Writer, dist presentation.LabeledDistribution) {
	table := newTable(w, []string{"Time of day", "Category", "Incidents", "%"})
	for _, row := range dist.Rows {
		table.Append([]string{row.Bucket, row.Category, strconv.Itoa(row.Count), strconv.FormatFloat(row.Percent, 'f', 1, 64)})
	}
	table.Render()

	totals := newTable(w, []string{"Time of day", "Incidents"})
	for _, s := range dist.Summary {
		totals.Append([]string{s.Bucket, strconv.Itoa(s.Count)})
	}
	totals.Render()
}
