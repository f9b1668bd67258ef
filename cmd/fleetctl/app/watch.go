package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetpeer/cmd/fleetctl/app/options"
	"github.com/autopeer-io/fleetpeer/internal/admin"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

const (
	feedWebsocket = "websocket"
	feedMQTT      = "mqtt"
	feedNone      = "none"

	clearScreen = "\033[H\033[2J"
)

type watchFlags struct {
	filter   string
	feed     string
	selectID string
	clear    bool
}

func newWatchCommand(opts *options.FleetctlOptions) *cobra.Command {
	f := &watchFlags{filter: string(admin.FilterAll), feed: feedWebsocket, clear: true}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the driver positions of the organization live",
		Long: `watch polls the roster at --tracking.poll-interval and refreshes early
whenever the change feed reports a position write. Drivers are drawn as
markers, green when online and grey when offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(genericapiserver.SetupSignalContext(), opts, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&f.filter, "filter", f.filter, "Show all, online or offline drivers.")
	cmd.Flags().StringVar(&f.feed, "feed", f.feed, "Change feed used for early refreshes: websocket, mqtt or none.")
	cmd.Flags().StringVar(&f.selectID, "select", "", "ID of a driver to center on and show details for.")
	cmd.Flags().BoolVar(&f.clear, "clear", f.clear, "Clear the terminal before each frame.")
	return cmd
}

func runWatch(ctx context.Context, opts *options.FleetctlOptions, f *watchFlags, out io.Writer) error {
	filter := admin.Filter(f.filter)
	if !filter.Valid() {
		return fmt.Errorf("unknown filter %q", f.filter)
	}
	switch f.feed {
	case feedWebsocket, feedMQTT, feedNone:
	default:
		return fmt.Errorf("unknown feed %q", f.feed)
	}

	s, err := signIn(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close()

	widget := admin.NewTableWidget()
	view := admin.NewView(widget)
	defer view.Close()

	pollerOpts := []admin.PollerOption{
		admin.WithPollInterval(opts.TrackingOptions.PollInterval),
		admin.WithSink(func(drivers []admin.DriverView) {
			view.Apply(filter.Apply(drivers))
			if f.selectID != "" && view.Selected() == "" {
				if err := view.CenterOn(f.selectID); err != nil && !errors.Is(err, admin.ErrUnknownMarker) {
					log.Warn("Cannot select driver", "driverID", f.selectID, "error", err)
				}
			}
		}),
	}

	switch f.feed {
	case feedWebsocket:
		pollerOpts = append(pollerOpts, admin.WithChangeFeed(admin.NewWebsocketFeed(s.client.ChangesURL(), s.client.Token)))
	case feedMQTT:
		client, err := newMQTTClient(opts, s.profile.ID)
		if err != nil {
			return err
		}
		if err := client.Start(ctx); err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		topics := mqtttopic.NewBuilder(opts.MqttOptions.TopicRoot)
		pollerOpts = append(pollerOpts, admin.WithChangeFeed(admin.NewMQTTFeed(client, topics, s.profile.OrganizationID)))
	}

	fr := &frame{out: out, clear: f.clear, widget: widget, org: s.profile.OrganizationName}
	pollerOpts = append(pollerOpts, admin.WithUpdateHandler(fr.render))

	poller, err := admin.NewPoller(s.profile.OrganizationID, s, pollerOpts...)
	if err != nil {
		return err
	}

	h := poller.Start(ctx)
	<-ctx.Done()
	h.Stop()
	<-h.Done()
	return nil
}

func newMQTTClient(opts *options.FleetctlOptions, userID string) (mqtt.Client, error) {
	cfg := opts.MqttOptions.ToClientConfig()
	if cfg.ClientID == "" {
		host, _ := os.Hostname()
		cfg.ClientID = fmt.Sprintf("fleetctl-%s-%s", userID, host)
	}
	return mqtt.NewClient(cfg)
}

// frame renders one screen of the watch view per poller update.
type frame struct {
	mu     sync.Mutex
	out    io.Writer
	clear  bool
	widget *admin.TableWidget
	org    string
}

func (fr *frame) render(st admin.State) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.clear {
		fmt.Fprint(fr.out, clearScreen)
	}
	c := st.Counts
	fmt.Fprintf(fr.out, "%s  %d drivers  %d online  %d offline  avg %.1f km/h  updated %s\n",
		fr.org, c.Total, c.Online, c.Offline, c.AvgSpeed, st.UpdatedAt.Local().Format(time.TimeOnly))
	if st.Err != nil {
		fmt.Fprintf(fr.out, "refresh failed, showing last known positions: %v\n", st.Err)
	}
	fmt.Fprintln(fr.out)
	if err := fr.widget.Render(fr.out); err != nil {
		log.Error(err, "Render failed")
	}
}
