package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/cli/timeutil"
)

var (
	checkDate     string
	checkNoNotify bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Alert on cameras that stopped recording",
	Long: `Count the recordings of every camera folder at the share root for one
day (default: yesterday).

A camera with no recordings that day but some on the next day is reported
as recovered. Otherwise the last day with recordings within the previous
30 days is looked up and an alert is sent to the configured webhook and
MQTT broker.

Examples:
  # Check yesterday
  kidwatch check

  # Check a given day without sending alerts
  kidwatch check -d 20240819 --no-notify`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkDate, "date", "d", "", "day to check as YYYYMMDD (default: yesterday)")
	checkCmd.Flags().BoolVar(&checkNoNotify, "no-notify", false, "report missing cameras without alerting")
}

// checkDay resolves the --date flag. now is injected for tests.
func checkDay(flag string, now time.Time) (time.Time, error) {
	if flag == "" {
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	return timeutil.ParseDate(flag)
}

func runCheck(cmd *cobra.Command, args []string) error {
	day, err := checkDay(checkDate, time.Now())
	if err != nil {
		return err
	}
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	ctx, rt, err := newRuntime(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	if !checkNoNotify {
		if err := rt.openNotifier(); err != nil {
			return err
		}
	}

	checks, err := rt.newApp().Check(ctx, day)
	if err != nil {
		return err
	}

	if err := p.Print(checkTable(checks)); err != nil {
		return err
	}

	missing := 0
	for _, c := range checks {
		if c.Status == app.StatusMissing {
			missing++
		}
	}
	if missing > 0 {
		p.Warning("\nSome cameras have no recordings for " + timeutil.FormatDate(day))
	} else {
		p.Success("\nAll cameras recorded on " + timeutil.FormatDate(day))
	}
	return nil
}
