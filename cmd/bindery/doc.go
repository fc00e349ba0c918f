// Command bindery is the service CLI. Its convert subcommand doubles as the
// isolated fetch+convert subprocess spawned by the daemon; the remaining
// subcommands inspect and manage the cache, history, and configuration.
package main
