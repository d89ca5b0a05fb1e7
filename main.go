package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	mpb "github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"

	"github.com/bcdannyboy/optbook/config"
	"github.com/bcdannyboy/optbook/impliedvol"
	"github.com/bcdannyboy/optbook/logger"
	"github.com/bcdannyboy/optbook/models"
	"github.com/bcdannyboy/optbook/portfolio"
	"github.com/bcdannyboy/optbook/probability"
	"github.com/bcdannyboy/optbook/report"
	"github.com/bcdannyboy/optbook/tradier"
)

var (
	cfg config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "optbook",
	Short:         "Price and risk a book of equity options",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		envFile, _ := cmd.Flags().GetString("env")
		if envFile != "" {
			cfg, err = config.Load(envFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if kernel, _ := cmd.Flags().GetString("model"); kernel != "" {
			cfg.Model.Kernel = kernel
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Log.Level = level
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log = logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("env", "", "env file with OPTBOOK_* settings (default: ./.env if present)")
	rootCmd.PersistentFlags().String("model", "", "pricing kernel: auto, bsm, crr, merton, mc")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("format", "table", "output format: table or json")
	rootCmd.PersistentFlags().Bool("implied", false, "solve implied volatility from observed prices")

	evaluateCmd.Flags().String("book", "", "book JSON file (- for stdin)")
	_ = evaluateCmd.MarkFlagRequired("book")

	chainCmd.Flags().String("file", "", "chain snapshot JSON file (- for stdin)")
	chainCmd.Flags().Float64("spot", 0, "override the snapshot spot")
	chainCmd.Flags().Float64("rate", 0, "override the snapshot rate")
	chainCmd.Flags().Bool("feed-iv", false, "price at the feed's mid implied volatility")
	chainCmd.Flags().Bool("imply-dividends", false, "replace the snapshot dividend with the curve implied by at-the-money pairs")
	_ = chainCmd.MarkFlagRequired("file")

	riskCmd.Flags().String("book", "", "book JSON file (- for stdin)")
	riskCmd.Flags().Float64("vol", 0.2, "annual volatility of the underlying")
	riskCmd.Flags().Float64("drift", 0, "annual drift of the underlying")
	riskCmd.Flags().String("history", "", "chain snapshot with daily history to estimate the volatility from (- for stdin)")
	riskCmd.Flags().Bool("jumps", false, "add jumps using the OPTBOOK_JUMP_* settings")
	riskCmd.Flags().Bool("progress", false, "show a progress bar on stderr")
	_ = riskCmd.MarkFlagRequired("book")

	volCmd.Flags().String("file", "", "chain snapshot JSON file with daily history (- for stdin)")
	_ = volCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(riskCmd)
	rootCmd.AddCommand(volCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Value a book and its Greeks",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, m, err := openBook(cmd)
		if err != nil {
			return err
		}
		ev, err := newEvaluator()
		if err != nil {
			return err
		}
		implied, _ := cmd.Flags().GetBool("implied")
		res, err := ev.Evaluate(book, m, portfolio.Options{ImpliedVol: implied})
		if err != nil {
			return err
		}
		return render(cmd, res)
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Value every option of a saved chain snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		r, closeFn, err := open(path)
		if err != nil {
			return err
		}
		defer closeFn()

		snap, err := tradier.DecodeSnapshot(r)
		if err != nil {
			return err
		}
		opts := tradier.BookOptions{}
		opts.Spot, _ = cmd.Flags().GetFloat64("spot")
		opts.UseFeedIV, _ = cmd.Flags().GetBool("feed-iv")
		if cmd.Flags().Changed("rate") {
			rate, _ := cmd.Flags().GetFloat64("rate")
			opts.Rate = &rate
		}
		if opts.ImplyDividends, _ = cmd.Flags().GetBool("imply-dividends"); opts.ImplyDividends {
			if opts.American, err = newAmericanSolver(); err != nil {
				return err
			}
		}
		book, m, skipped, err := snap.Book(opts)
		if err != nil {
			return err
		}
		if skipped > 0 {
			log.Warn().Int("skipped", skipped).Msg("options skipped while reading chain")
		}

		ev, err := newEvaluator()
		if err != nil {
			return err
		}
		// a chain carries no volatilities unless the feed's are used
		implied, _ := cmd.Flags().GetBool("implied")
		res, err := ev.Evaluate(book, m, portfolio.Options{ImpliedVol: implied || !opts.UseFeedIV})
		if err != nil {
			return err
		}
		return render(cmd, res)
	},
}

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Scenario value at risk of a book",
	RunE: func(cmd *cobra.Command, args []string) error {
		book, m, err := openBook(cmd)
		if err != nil {
			return err
		}
		ev, err := newEvaluator()
		if err != nil {
			return err
		}
		analyzer, err := probability.NewAnalyzer(ev, cfg.Risk, log)
		if err != nil {
			return err
		}

		d := probability.Dynamics{}
		d.Volatility, _ = cmd.Flags().GetFloat64("vol")
		if path, _ := cmd.Flags().GetString("history"); path != "" {
			if d, err = historyDynamics(path); err != nil {
				return err
			}
			if cmd.Flags().Changed("vol") {
				d.Volatility, _ = cmd.Flags().GetFloat64("vol")
			}
			log.Info().Float64("volatility", d.Volatility).Msg("volatility estimated from history")
		}
		d.Drift, _ = cmd.Flags().GetFloat64("drift")
		if jumps, _ := cmd.Flags().GetBool("jumps"); jumps {
			d.JumpIntensity = cfg.Model.JumpIntensity
			d.JumpMean = cfg.Model.JumpMean
			d.JumpVol = cfg.Model.JumpVol
		}
		var p *mpb.Progress
		if show, _ := cmd.Flags().GetBool("progress"); show {
			p = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
			bar := p.AddBar(int64(cfg.Risk.Paths),
				mpb.PrependDecorators(
					decor.Name("Scenarios"),
					decor.Percentage(decor.WCSyncSpace),
				),
				mpb.AppendDecorators(
					decor.CountersNoUnit("(%d / %d)", decor.WCSyncSpace),
				),
			)
			analyzer.OnScenario(bar.Increment)
		}

		implied, _ := cmd.Flags().GetBool("implied")
		rep, err := analyzer.Run(book, m, portfolio.Options{ImpliedVol: implied}, d)
		if p != nil {
			p.Wait()
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "base value          %.4f\n", rep.BaseValue)
		fmt.Fprintf(out, "scenarios           %d\n", rep.Scenarios)
		fmt.Fprintf(out, "mean pnl            %.4f\n", rep.MeanPnL)
		fmt.Fprintf(out, "VaR %.1f%%           %.4f\n", 100*rep.Confidence, rep.VaR)
		fmt.Fprintf(out, "expected shortfall  %.4f\n", rep.ExpectedShortfall)
		fmt.Fprintf(out, "worst loss          %.4f\n", rep.WorstLoss)
		return nil
	},
}

var volCmd = &cobra.Command{
	Use:   "vol",
	Short: "Historical volatility of a snapshot's daily bars",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		r, closeFn, err := open(path)
		if err != nil {
			return err
		}
		defer closeFn()

		snap, err := tradier.DecodeSnapshot(r)
		if err != nil {
			return err
		}
		if snap.History == nil || len(snap.History.History.Day) < 2 {
			return fmt.Errorf("snapshot %s has no daily history", snap.Underlying)
		}

		estimators := []struct {
			name     string
			estimate probability.Estimator
		}{
			{"garman-klass", probability.GarmanKlass},
			{"parkinson", probability.Parkinson},
			{"rogers-satchell", probability.RogersSatchell},
			{"yang-zhang", probability.YangZhang},
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprint(tw, "estimator")
		for _, w := range probability.StandardWindows {
			fmt.Fprintf(tw, "\t%s", w.Name)
		}
		fmt.Fprintln(tw)
		for _, e := range estimators {
			vols := probability.Windows(*snap.History, e.estimate, probability.StandardWindows)
			fmt.Fprint(tw, e.name)
			for _, w := range probability.StandardWindows {
				if v, ok := vols[w.Name]; ok {
					fmt.Fprintf(tw, "\t%.4f", v)
				} else {
					fmt.Fprint(tw, "\t-")
				}
			}
			fmt.Fprintln(tw)
		}
		fmt.Fprintf(tw, "close-to-close\t%.4f\t\t\t\n", probability.CloseToClose(*snap.History))
		return tw.Flush()
	},
}

func newEvaluator() (*portfolio.Evaluator, error) {
	kernel, err := models.NewKernel(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("kernel", kernel.Name()).Msg("kernel selected")
	return portfolio.NewEvaluator(kernel, cfg, log)
}

// newAmericanSolver solves American legs on the configured lattice.
func newAmericanSolver() (*impliedvol.Solver, error) {
	tree, err := models.NewBinomial(cfg.Model.TreeSteps, cfg.Greeks.ATMDeltaTieBreak, cfg.Greeks)
	if err != nil {
		return nil, err
	}
	return impliedvol.NewSolver(tree, cfg.Solver, log)
}

func historyDynamics(path string) (probability.Dynamics, error) {
	r, closeFn, err := open(path)
	if err != nil {
		return probability.Dynamics{}, err
	}
	defer closeFn()

	snap, err := tradier.DecodeSnapshot(r)
	if err != nil {
		return probability.Dynamics{}, err
	}
	if snap.History == nil {
		return probability.Dynamics{}, fmt.Errorf("snapshot %s has no daily history", snap.Underlying)
	}
	return probability.DynamicsFromHistory(*snap.History)
}

func openBook(cmd *cobra.Command) (*portfolio.Portfolio, models.MarketState, error) {
	path, _ := cmd.Flags().GetString("book")
	r, closeFn, err := open(path)
	if err != nil {
		return nil, models.MarketState{}, err
	}
	defer closeFn()
	return readBook(r)
}

func open(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func render(cmd *cobra.Command, res *portfolio.Result) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return report.WriteJSON(cmd.OutOrStdout(), res)
	case "table", "":
		return report.WriteTable(cmd.OutOrStdout(), res)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
