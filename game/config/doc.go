// Package config provides map management for the bot arena.
//
// The config package handles:
//   - Loading map files from a maps directory, one sub directory per game
//   - Map validation through the engine's map parser
//   - Default maps, including built-in boards when no file exists
//   - Map discovery and listing
//   - Default engine options for new matches
//   - Checking standalone map files (ValidateFile) for the maps validate command
//
// Map Format:
//
// Maps are plain text files with a .map extension:
//
//	# optional description lines
//	rows 5
//	cols 5
//	players 2
//	m -----
//	m -----
//	...
//
// Life maps use w, b and - cells; lights maps use 1 (ON) and 0 (OFF).
// Leading comment lines become the map description.
//
// Directory Layout:
//
//	maps/
//	  life/default.map    (optional, built-in board otherwise)
//	  life/skirmish.map
//	  lights/cross.map
//	  lights/checker.map
//
// Usage:
//
//	manager, err := config.NewManager("maps", engine.DefaultOptions())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load specific map
//	m, err := manager.LoadMap(engine.Lights, "cross")
//
//	// Get default map
//	def := manager.GetDefault(engine.Life)
//
//	// List available maps
//	maps, err := manager.ListMaps("")
package config
