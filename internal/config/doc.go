// Package config provides the run configuration for docmirror.
//
// A Config is built from defaults (NewConfig), overlaid with the optional
// .docmirror.yaml file (per-site settings keyed by host), and finally with
// the command line flags the user set explicitly. Validate is called once
// before any network activity; its sentinel errors are fatal.
//
// Directory locations follow the XDG Base Directory specification:
// the run history database lives in the data dir, the config file may live
// in the config dir, and log files default to the state dir.
package config
