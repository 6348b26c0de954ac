package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"sentinel/internal/broker/mt5bridge"
	"sentinel/internal/config"
	"sentinel/internal/engine"
	"sentinel/internal/logger"
	"sentinel/internal/metrics"
	"sentinel/internal/setups"
	"sentinel/internal/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "sentinel",
		Short:         "Сопровождение ордеров и частичная фиксация прибыли через MT5 мост",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к файлу конфигурации")

	root.AddCommand(runCmd(), stateCmd(), eventsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Запустить цикл сверки",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			log := logger.New(logger.Config{
				Level:      cfg.Runtime.Log.Level,
				Format:     cfg.Runtime.Log.Format,
				Output:     cfg.Runtime.Log.File,
				MaxSize:    cfg.Runtime.Log.MaxSize,
				MaxBackups: cfg.Runtime.Log.MaxBackups,
				MaxAge:     cfg.Runtime.Log.MaxAge,
				Compress:   cfg.Runtime.Log.Compress,
			})

			st, err := store.New(cfg.Runtime.StateDir)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			gw := mt5bridge.New(cfg.Broker.BaseUrl, cfg.Broker.WSUrl, cfg.Broker.ApiToken, log)
			if cfg.Broker.WSUrl != "" {
				if err := gw.StreamTicks(ctx, cfg.Bot.Symbols); err != nil {
					log.WithError(err).Warn("Поток котировок не запущен, работаем через REST.")
				}
			}

			met := metrics.New()
			if cfg.Runtime.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", met.Handler())
				srv := &http.Server{Addr: cfg.Runtime.MetricsAddr, Handler: mux}
				go func() {
					if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						log.WithError(err).Error("Сервер метрик остановился с ошибкой.")
					}
				}()
				go func() {
					<-ctx.Done()
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					srv.Shutdown(shutdownCtx)
				}()
			}

			provider := setups.NewFileProvider(cfg.Bot.SetupsFile)

			eng, err := engine.New(cfg, gw, st, provider, met, log)
			if err != nil {
				return err
			}

			log.WithFields(map[string]interface{}{
				"broker":  cfg.Broker.BaseUrl,
				"symbols": cfg.Bot.Symbols,
				"magic":   cfg.Bot.Magic,
			}).Info("Sentinel запускается.")

			return eng.Start(ctx)
		},
	}
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Показать сохранённое состояние",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, err := store.New(cfg.Runtime.StateDir)
			if err != nil {
				return err
			}
			state, err := st.LoadState()
			if err != nil {
				return err
			}

			fmt.Printf("Сохранено: %s\n\n", state.SavedAt.Format(time.RFC3339))

			if len(state.Compressions) > 0 {
				fmt.Println("Сжатые TP:")
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Ticket", "Symbol", "Original TP", "TP 3R", "Entry", "Confirmed")
				for ticket, rec := range state.Compressions {
					table.Append(
						strconv.FormatInt(ticket, 10),
						rec.Symbol,
						fmt.Sprintf("%.5f", rec.OriginalTP),
						fmt.Sprintf("%.5f", rec.CompressedTP),
						fmt.Sprintf("%.5f", rec.EntryPrice),
						strconv.FormatBool(rec.Confirmed),
					)
				}
				table.Render()
				fmt.Println()
			}

			if len(state.Partials) > 0 {
				fmt.Println("Частичные фиксации:")
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Ticket", "Symbol", "R", "Closed", "Remaining", "Restored")
				for ticket, rec := range state.Partials {
					table.Append(
						strconv.FormatInt(ticket, 10),
						rec.Symbol,
						fmt.Sprintf("%.2f", rec.RAtPartial),
						fmt.Sprintf("%.2f", rec.VolumeClosed),
						fmt.Sprintf("%.2f", rec.VolumeRemaining),
						strconv.FormatBool(rec.Restored),
					)
				}
				table.Render()
				fmt.Println()
			}

			if len(state.OrdersPlaced) > 0 {
				fmt.Println("Размещения за день:")
				table := tablewriter.NewWriter(os.Stdout)
				table.Header("Symbol", "Date")
				for symbol, day := range state.OrdersPlaced {
					table.Append(symbol, day)
				}
				table.Render()
			}

			if len(state.Compressions) == 0 && len(state.Partials) == 0 && len(state.OrdersPlaced) == 0 {
				fmt.Println("Активных записей нет.")
			}
			return nil
		},
	}
}

func eventsCmd() *cobra.Command {
	var tail int
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Показать последние события",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			st, err := store.New(cfg.Runtime.StateDir)
			if err != nil {
				return err
			}
			events, err := st.TailEvents(tail)
			if err != nil {
				return err
			}
			for _, ev := range events {
				fmt.Printf("%s  %-28s %v\n", ev.Time.Format("2006-01-02 15:04:05"), ev.Type, ev.Payload)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&tail, "tail", "n", 50, "сколько последних событий показать")
	return cmd
}
