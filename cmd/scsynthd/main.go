// Command scsynthd is the scsynth render server process. It mirrors the
// teacher's main.go + engine.New(...) pattern: construct every subsystem
// in dependency order, install a signal handler that shuts them down in
// reverse order, then run the render loop on the main goroutine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/scintillator/scsynth/engine/archetypes"
	"github.com/scintillator/scsynth/engine/comp"
	"github.com/scintillator/scsynth/engine/config"
	"github.com/scintillator/scsynth/engine/core"
	"github.com/scintillator/scsynth/engine/gpu/vulkan"
	"github.com/scintillator/scsynth/engine/osc"
	"github.com/scintillator/scsynth/engine/scheduler"
)

// watcherSet tracks the directory watchers LoadDefsFromDirectory/
// LoadVGensFromDirectory may hand back asynchronously, so shutdown can
// close every one of them regardless of when its load completed.
type watcherSet struct {
	mu       sync.Mutex
	watchers []*archetypes.Watcher
}

func (w *watcherSet) add(watcher *archetypes.Watcher) {
	if watcher == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.watchers = append(w.watchers, watcher)
}

func (w *watcherSet) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, watcher := range w.watchers {
		watcher.Close()
	}
}

func main() {
	cfgPath := ""
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "scsynthd: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	core.SetLevel(cfg.LogLevel)

	// Leaf-first construction, per spec.md §2's component table: the
	// archetypes registry and scheduler have no dependencies on anything
	// else; the GPU driver depends on nothing in-process; the render tree
	// depends on nothing; the compiled-def registry depends on the driver;
	// the offscreen driver depends on the tree, driver, and stage manager;
	// the OSC server depends on everything above it.
	reg := archetypes.NewRegistry()
	sched := scheduler.NewAsync(cfg.WorkerCount)

	driver, err := vulkan.NewDriver("scsynthd")
	if err != nil {
		core.LogFatal("scsynthd: failed to create GPU driver: %v", err)
	}

	tree := comp.NewRenderTree()
	imageMap := comp.NewImageMap()
	stageManager := comp.NewStageManager(driver, imageMap)
	compiler := comp.NewGLSLCCompiler(cfg.GLSLCPath)
	compiledDefs := comp.NewCompiledDefs(driver, compiler, cfg.ClearColor)

	offscreen, err := comp.NewOffscreen(driver, tree, stageManager, cfg.OffscreenWidth, cfg.OffscreenHeight, cfg.OffscreenImages, cfg.ClearColor, cfg.FrameRate)
	if err != nil {
		core.LogFatal("scsynthd: failed to create offscreen driver: %v", err)
	}

	dispatcher := &osc.Dispatcher{
		Registry:     reg,
		Tree:         tree,
		Defs:         compiledDefs,
		Scheduler:    sched,
		Offscreen:    offscreen,
		StageManager: stageManager,
		ImageMap:     imageMap,
		Driver:       driver,
		ImageCount:   cfg.OffscreenImages,
	}

	server, err := osc.Listen(cfg.ListenAddr, dispatcher)
	if err != nil {
		core.LogFatal("scsynthd: failed to bind %s: %v", cfg.ListenAddr, err)
	}

	var watchers watcherSet
	if cfg.DefsDirectory != "" {
		sched.LoadDefsFromDirectory(reg, cfg.DefsDirectory, cfg.WatchDirectories, func(result archetypes.ParseResult, watcher *archetypes.Watcher, err error) {
			watchers.add(watcher)
			if err != nil {
				core.LogWarn("scsynthd: loading defs from %s: %v", cfg.DefsDirectory, err)
				return
			}
			core.LogInfo("scsynthd: loaded %d defs from %s", result.DefsLoaded, cfg.DefsDirectory)
		})
	}
	if cfg.VGensDirectory != "" {
		sched.LoadVGensFromDirectory(reg, cfg.VGensDirectory, cfg.WatchDirectories, func(result archetypes.ParseResult, watcher *archetypes.Watcher, err error) {
			watchers.add(watcher)
			if err != nil {
				core.LogWarn("scsynthd: loading vgens from %s: %v", cfg.VGensDirectory, err)
				return
			}
			core.LogInfo("scsynthd: loaded %d vgens from %s", result.VGensLoaded, cfg.VGensDirectory)
		})
	}

	go server.Serve()
	core.LogInfo("scsynthd: listening on %s", cfg.ListenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		core.LogInfo("scsynthd: shutting down")

		// Reverse dependency order: OSC first so no new work is admitted,
		// then the render loop, then the subsystems it drew on, then the
		// scheduler, then the GPU device itself.
		server.Stop()
		watchers.closeAll()
		offscreen.Stop()
		offscreen.Destroy()
		sched.Stop()
		driver.Destroy()
		os.Exit(0)
	}()

	offscreen.Run()
}
