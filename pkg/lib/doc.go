// Package lib provides a Go SDK for generating short videos programmatically.
//
// This package allows applications to turn text scripts into rendered
// short-form videos without shelling out to the shortsturbo CLI binary or
// running the HTTP API. It is useful for scripting, automation, and building
// tools on top of ShortsTurbo.
//
// # Quick Start
//
// Create a client and generate a video from a script:
//
//	client, err := lib.New(ctx, lib.Config{
//	    PexelsAPIKey: os.Getenv("PEXELS_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	task, err := client.Generate(ctx, "The ocean covers most of our planet.", &lib.GenerateOpts{
//	    Terms:  []string{"ocean", "waves"},
//	    Aspect: lib.AspectPortrait,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(task.Status, task.Videos)
//
// [Client.Generate] blocks until the pipeline finishes. For finer control,
// [Client.SubmitTask] registers a pending task and [Client.RunTask] executes
// it, so submission and execution can happen at different times or in
// different processes sharing the same registry.
//
// # Pipeline
//
// A task moves through four stages: speech synthesis (edge-tts), subtitle
// timing, material collection (stock footage search and download), and the
// final render (ffmpeg). Each finished stage commits a [StageArtifact] on
// the task. Use [GenerateOpts].StopAfter to stop early, for example
// [StageSpeech] for a narration-only run.
//
// # Providers
//
// Stock footage comes from the Pexels and Pixabay APIs, enabled by their API
// keys in [Config], plus a local materials directory under the data dir that
// is always available. Narration uses the edge-tts binary and rendering uses
// ffmpeg, both must be installed for real runs. [Client.Doctor] verifies the
// toolchain.
//
// # Music Library
//
// Background music is mixed in from a song library under the data dir:
//
//	client.AddSong("chill.mp3", file)
//	songs, _ := client.ListSongs()
//
// By default a random library song is used. An empty library is tolerated,
// the task succeeds with a warning and a silent background.
//
// # Cancellation
//
// [Client.CancelTask] cancels pending tasks immediately. A running task is
// flagged and settles to cancelled at its next stage boundary, this works
// across processes sharing the same registry.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Task or resource does not exist.
//   - [ErrNotValid]: Invalid input or operation (e.g. removing a live task without force).
//   - [ErrAlreadyTerminal]: The task already finished (e.g. cancelling a done task).
//   - [ErrAlreadyExists]: Resource with the same identity already exists.
//
// # Testing
//
// Use [Config].FakeProviders and a temporary database path to write tests
// without network access or installed binaries:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    DBPath:        filepath.Join(t.TempDir(), "test.db"),
//	    DataDir:       t.TempDir(),
//	    FakeProviders: true,
//	})
//	defer client.Close()
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines. The
// underlying storage uses SQLite with WAL mode, and app services are created
// per-operation.
package lib
