// Package clientcli implements the bucket command line tool on top of bucketfs.Storage.
//
// Its main operation is Sync, a one-way sync of a local directory tree into a bucket:
// files matching an exclude pattern are skipped, and a file is uploaded when it is
// forced, missing remotely, or newer than the remote copy. Files are processed by a
// bounded pool of workers.
//
// # Basic Usage
//
//	tc, err := cfg.Transport(os.Getenv)
//	if err != nil {
//		log.Fatal(err)
//	}
//	tr, err := transport.New(tc)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(tr, bucketfs.Options{Cache: cache})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Sync(ctx, clientcli.SyncOptions{
//		Dir:    "./static",
//		Prefix: "static",
//	})
//
// # Profile Configuration
//
// Connection settings for several buckets live in a YAML profile file:
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := clientcli.MergeConfig(clientcli.ConfigFromProfile(profile), clientcli.ConfigFromEnv())
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatSync(os.Stdout, results)
package clientcli
