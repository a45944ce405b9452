package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

func main() {
	// SIGINT cancels whatever is in flight: a log tail stops, a waiter is
	// abandoned. There is no compensating rollback.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:  "ibgw",
		Usage: "Provision and manage an Interactive Brokers Gateway on AWS ECS Fargate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profile",
				Usage: "AWS credential profile name (e.g., dev, prod)",
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "AWS region (defaults to the profile's region)",
			},
			&cli.StringFlag{
				Name:  "settings",
				Usage: "Path to the settings file",
				Value: "ibgw.toml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "deploy",
				Usage:  "Create or reuse every resource and start the gateway",
				Action: deployCommand,
			},
			{
				Name:   "status",
				Usage:  "Show desired/running task counts and recent service events",
				Action: statusCommand,
			},
			{
				Name:   "ip",
				Usage:  "Print the Elastic IP and the gateway endpoints",
				Action: ipCommand,
			},
			{
				Name:   "logs",
				Usage:  "Tail gateway logs, or diagnose why there are none",
				Action: logsCommand,
			},
			{
				Name:   "restart",
				Usage:  "Force a new deployment of the running task",
				Action: restartCommand,
			},
			{
				Name:   "stop",
				Usage:  "Scale the gateway to zero tasks",
				Action: stopCommand,
			},
			{
				Name:   "start",
				Usage:  "Scale the gateway back to one task",
				Action: startCommand,
			},
			{
				Name:   "update-ip",
				Usage:  "Rotate the ingress allow-list to your current public IP",
				Action: updateIPCommand,
			},
			{
				Name:  "update",
				Usage: "Re-render the task definition from settings and redeploy",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Inject gateway trace env and a VNC password placeholder",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Print the rendered task definition without calling AWS",
					},
				},
				Action: updateCommand,
			},
			{
				Name:  "delete",
				Usage: "Tear down every resource (asks for confirmation)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Skip the confirmation prompt",
					},
				},
				Action: deleteCommand,
			},
		},
		// If user just types "ibgw", show help.
		Action: func(c *cli.Context) error {
			return cli.ShowAppHelp(c)
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
