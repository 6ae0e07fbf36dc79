// ABOUTME: Entry point for the fieldsync on-device sync agent
// ABOUTME: Routes to daemon, status, queue, and maintenance commands based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/ruteo/fieldsync/cli"
	"github.com/ruteo/fieldsync/config"
)

const version = "0.3.1"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("fieldsync version %s\n", version)
		os.Exit(0)
	}

	// Local .env is optional; real deployments use the config file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "login":
		if err := cli.LoginCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "daemon":
		if err := cli.DaemonCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "status":
		if err := cli.StatusCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "sync":
		if err := cli.SyncCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "queue":
		if len(commandArgs) == 0 {
			fmt.Println("Error: queue requires a subcommand (list, remove)")
			printUsage()
			os.Exit(1)
		}
		sub := commandArgs[0]
		subArgs := commandArgs[1:]
		switch sub {
		case "list":
			if err := cli.QueueListCommand(cfg, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "remove":
			if err := cli.QueueRemoveCommand(cfg, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown queue command: %s\n\n", sub)
			printUsage()
			os.Exit(1)
		}

	case "planned":
		if len(commandArgs) == 0 {
			fmt.Println("Error: planned requires a subcommand (list, refresh)")
			printUsage()
			os.Exit(1)
		}
		sub := commandArgs[0]
		subArgs := commandArgs[1:]
		switch sub {
		case "list":
			if err := cli.PlannedListCommand(cfg, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "refresh":
			if err := cli.PlannedRefreshCommand(cfg, subArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown planned command: %s\n\n", sub)
			printUsage()
			os.Exit(1)
		}

	case "history":
		if err := cli.HistoryCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "clear":
		if err := cli.ClearCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "dash":
		if err := cli.DashCommand(cfg, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`fieldsync v%s - On-device sync agent for field operations

USAGE:
  fieldsync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit

COMMANDS:
  fieldsync login        Configure server, API token, and device identity
    --server <url>          Field-ops API base URL

  fieldsync daemon       Run the sync agent and local API for the PWA
    --listen <addr>         Local API listen address (default: %s)

  fieldsync status       Show connectivity, pending counts, and last run

  fieldsync sync         Force a reconciliation run now
    --timeout <dur>         Overall run timeout (default: 2m)

  fieldsync queue list   List locally queued drafts and reports
  fieldsync queue remove --kind <draft|report> <id>
                         Drop a queued record by id

  fieldsync planned list     Show the cached planned-visit route
  fieldsync planned refresh  Replace the cache from the server
    --timeout <dur>             Fetch timeout (default: 30s)

  fieldsync history      List recent sync runs
    --limit <n>             Max runs to show (default: 20)

  fieldsync clear        Drop all queued records (destructive)
    --force                 Skip confirmation prompt

  fieldsync dash         Interactive status dashboard

EXAMPLES:
  # First-time setup
  fieldsync login --server https://ops.example.com

  # Run the agent (the PWA talks to the local API)
  fieldsync daemon

  # Check what is still waiting to sync
  fieldsync queue list

  # Push everything now
  fieldsync sync

ENVIRONMENT:
  FIELDSYNC_SERVER, FIELDSYNC_TOKEN, FIELDSYNC_DEVICE_ID,
  FIELDSYNC_LISTEN, FIELDSYNC_LOG_LEVEL override the config file.
`, version, config.DefaultListenAddr)
}
