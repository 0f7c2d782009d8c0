package harfbuzz

// debugMode toggles the verbose per-stage tracing shaperOpentype.shape would
// emit; always off in this package, matching HarfBuzz's release builds.
const debugMode = false
