package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"golang.org/x/oauth2"

	"github.com/spf13/cobra"

	"tracklog/internal/auth"
	"tracklog/internal/fitbit"
	"tracklog/internal/gcconnect"
	"tracklog/internal/reconcile"
	"tracklog/internal/service"
	"tracklog/internal/store"
	"tracklog/internal/strava"
)

var syncCmd = &cobra.Command{
	Use:   "sync [strava|fitbit|connect|all]",
	Short: "Fetch new provider activities and reconcile them",
	Long: `Fetch activity records newer than the last sync from the provider
APIs, store them, and link them to imported summaries. The first sync of an
OAuth provider opens a browser login; tokens persist in the database and
refresh automatically.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"strava", "fitbit", "connect", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "all"
		if len(args) > 0 {
			target = args[0]
		}

		e, err := setup()
		if err != nil {
			return err
		}
		defer e.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		svc, err := buildSyncService(ctx, e, target)
		if err != nil {
			return err
		}

		progress := make(chan service.Progress)
		done := make(chan struct{})
		go func() {
			defer close(done)
			drawProgress(progress)
		}()

		var results []service.SyncResult
		switch target {
		case "all":
			results, err = svc.SyncAll(ctx, progress)
		case reconcile.ProviderStrava:
			var r *service.SyncResult
			r, err = svc.SyncStrava(ctx, progress)
			results = append(results, *r)
		case reconcile.ProviderFitbit:
			var r *service.SyncResult
			r, err = svc.SyncFitbit(ctx, progress)
			results = append(results, *r)
		case reconcile.ProviderConnect:
			var r *service.SyncResult
			r, err = svc.SyncConnect(ctx, progress)
			results = append(results, *r)
		default:
			close(progress)
			return fmt.Errorf("unknown provider %q", target)
		}
		<-done
		if err != nil {
			return err
		}

		for _, r := range results {
			fmt.Printf("%s: fetched %d, stored %d", r.Provider, r.Fetched, r.Stored)
			if r.Reconcile != nil {
				fmt.Printf(", linked %d", r.Reconcile.Linked)
			}
			for _, syncErr := range r.Errors {
				fmt.Printf("\n  ERROR: %v", syncErr)
			}
			fmt.Println()
		}
		return nil
	},
}

// buildSyncService assembles clients for whichever providers have
// credentials. When syncing a single provider its credentials are mandatory;
// for "all", unconfigured providers are skipped with a notice.
func buildSyncService(ctx context.Context, e *env, target string) (*service.SyncService, error) {
	var stravaClient service.StravaClient
	var fitbitClient service.FitbitClient
	var connectClient service.ConnectClient

	if target == "all" || target == reconcile.ProviderStrava {
		err := e.cfg.ValidateStrava()
		switch {
		case err == nil:
			ts, tsErr := tokenSource(ctx, e, reconcile.ProviderStrava, auth.StravaConfig(e.cfg.Strava))
			if tsErr != nil {
				return nil, tsErr
			}
			stravaClient = strava.NewClient(ts)
		case target != "all":
			return nil, err
		default:
			fmt.Printf("skipping strava: %v\n", err)
		}
	}

	if target == "all" || target == reconcile.ProviderFitbit {
		err := e.cfg.ValidateFitbit()
		switch {
		case err == nil:
			ts, tsErr := tokenSource(ctx, e, reconcile.ProviderFitbit, auth.FitbitConfig(e.cfg.Fitbit))
			if tsErr != nil {
				return nil, tsErr
			}
			fitbitClient = fitbit.NewClient(ts)
		case target != "all":
			return nil, err
		default:
			fmt.Printf("skipping fitbit: %v\n", err)
		}
	}

	if target == "all" || target == reconcile.ProviderConnect {
		client, err := gcconnect.NewClientFromTokenFile(e.cfg.Connect.TokenFile)
		switch {
		case err == nil:
			connectClient = client
		case target != "all":
			return nil, fmt.Errorf("garmin connect: %w", err)
		default:
			fmt.Printf("skipping garmin connect: %v\n", err)
		}
	}

	return service.NewSyncService(e.db, stravaClient, fitbitClient, connectClient, e.log), nil
}

// tokenSource returns a refreshing token source for the provider, running
// the browser OAuth flow when no token is stored yet. Refreshed tokens are
// written back so the next run skips the flow.
func tokenSource(ctx context.Context, e *env, provider string, oauthCfg *oauth2.Config) (oauth2.TokenSource, error) {
	tok, err := e.db.GetToken(provider)
	if errors.Is(err, store.ErrNoToken) {
		fmt.Printf("No %s token stored, starting login...\n", provider)
		tok, err = auth.Authenticate(ctx, provider, oauthCfg)
		if err != nil {
			return nil, fmt.Errorf("%s login: %w", provider, err)
		}
		if err := e.db.SaveToken(provider, tok); err != nil {
			return nil, fmt.Errorf("saving %s token: %w", provider, err)
		}
		fmt.Printf("Authenticated with %s.\n", provider)
	} else if err != nil {
		return nil, err
	}

	return auth.NewTokenSource(oauthCfg, tok, func(newTok *oauth2.Token) error {
		return e.db.SaveToken(provider, newTok)
	}), nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
