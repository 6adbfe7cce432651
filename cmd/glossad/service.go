package main

import (
	"fmt"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/glossahq/glossa/pkg/app"
)

// program adapts the daemon run loop to the service manager's lifecycle.
type program struct {
	params app.RunParams
	errCh  chan error
}

func (p *program) Start(service.Service) error {
	p.errCh = make(chan error, 1)
	go func() {
		p.errCh <- app.Run(p.params)
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run installs its own signal handling; the service manager sends
	// SIGTERM before calling Stop, so the run loop is already unwinding.
	select {
	case err := <-p.errCh:
		return err
	default:
		return nil
	}
}

func newService(params app.RunParams) (service.Service, error) {
	cfg := &service.Config{
		Name:        "glossad",
		DisplayName: "Glossa daemon",
		Description: "Bridges the Glossa browser extension to local and hosted LLM backends.",
		Arguments:   []string{"service", "run"},
	}
	return service.New(&program{params: params}, cfg)
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage glossad as a system service",
	}

	var configPath string
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	params := func() app.RunParams {
		return app.RunParams{
			ConfigPath: configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "install",
			Short: "Install glossad as a system service",
			RunE: func(*cobra.Command, []string) error {
				svc, err := newService(params())
				if err != nil {
					return err
				}
				if err := svc.Install(); err != nil {
					return fmt.Errorf("installing service: %w", err)
				}
				fmt.Println("Service installed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall",
			Short: "Remove the glossad system service",
			RunE: func(*cobra.Command, []string) error {
				svc, err := newService(params())
				if err != nil {
					return err
				}
				if err := svc.Uninstall(); err != nil {
					return fmt.Errorf("uninstalling service: %w", err)
				}
				fmt.Println("Service removed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "start",
			Short: "Start the installed service",
			RunE: func(*cobra.Command, []string) error {
				svc, err := newService(params())
				if err != nil {
					return err
				}
				return svc.Start()
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the installed service",
			RunE: func(*cobra.Command, []string) error {
				svc, err := newService(params())
				if err != nil {
					return err
				}
				return svc.Stop()
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run under the service manager (invoked by the service itself)",
			RunE: func(*cobra.Command, []string) error {
				svc, err := newService(params())
				if err != nil {
					return err
				}
				return svc.Run()
			},
		},
	)
	return cmd
}
