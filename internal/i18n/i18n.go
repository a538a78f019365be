// Package i18n holds the runtime message catalog for the supported
// UI languages.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLang is used for unknown or empty language codes.
const DefaultLang = "en"

// Key identifies a catalog entry.
type Key string

const (
	FolderInvalid       Key = "folder_invalid"
	CompilerInvalid     Key = "compiler_invalid"
	ViewerInvalid       Key = "viewer_invalid"
	NoSources           Key = "no_sources"
	NoCompileFiles      Key = "no_compile_files"
	MultipleSubprojects Key = "multiple_subprojects"
	CompileError        Key = "compile_error"
	SimError            Key = "sim_error"
	NoDump              Key = "no_dump"
	ConfigError         Key = "config_error"
	Compiling           Key = "compiling"
	Running             Key = "running"
	OpeningViewer       Key = "opening_viewer"
	SimUpdated          Key = "sim_updated"
	ViewerRestarting    Key = "viewer_restarting"
	ViewerClosing       Key = "viewer_closing"
	ViewerClosed        Key = "viewer_closed"
	ViewerCloseError    Key = "viewer_close_error"
	ViewerExited        Key = "viewer_exited"
	ViewerStartError    Key = "viewer_start_error"
	ProjectLoaded       Key = "project_loaded"
	ValidationSuccess   Key = "validation_success"
	ProblemsCount       Key = "problems_count"
	AppName             Key = "app_name"
	PopupErrorTitle     Key = "popup_error_title"
	PopupWarningTitle   Key = "popup_warning_title"
	PopupInfoTitle      Key = "popup_info_title"
)

var langs = map[string]language.Tag{
	"en": language.English,
	"es": language.Spanish,
}

var entries = map[Key][2]string{
	FolderInvalid:   {"Project folder is not set or does not exist.", "La carpeta de proyecto no está definida o no existe."},
	CompilerInvalid: {"Icarus Verilog path is invalid.", "La ruta de Icarus Verilog no es válida."},
	ViewerInvalid:   {"GTKWave path is invalid.", "La ruta de GTKWave no es válida."},
	NoSources:       {"No .v source files found to compile.", "No se encontraron archivos .v para compilar."},
	NoCompileFiles:  {"No source files available to compile in selected project.", "No hay archivos fuente para compilar en el proyecto seleccionado."},
	MultipleSubprojects: {
		"Multiple subprojects detected in ice-build. Open a single project folder, for example: ice-build/<project_name>/",
		"Se detectaron varios subproyectos en ice-build. Abre directamente la carpeta del proyecto, por ejemplo: ice-build/<nombre_proyecto>/",
	},
	CompileError:      {"Compilation error:\n%s", "Error en la compilación:\n%s"},
	SimError:          {"Simulation error:\n%s", "Error en la simulación:\n%s"},
	NoDump:            {"Simulation finished but no .vcd file was found.", "La simulación terminó, pero no se encontró archivo .vcd."},
	ConfigError:       {"Could not generate GTKWave configuration.", "No se pudo generar configuración de GTKWave."},
	Compiling:         {"Compiling... files=%d mode=%s", "Compilando... archivos=%d modo=%s"},
	Running:           {"Running simulation...", "Ejecutando simulación..."},
	OpeningViewer:     {"Opening GTKWave... %s", "Abriendo GTKWave... %s"},
	SimUpdated:        {"Simulation updated", "Simulación actualizada"},
	ViewerRestarting:  {"Reloading GTKWave with updated simulation...", "Recargando GTKWave con la simulación actualizada..."},
	ViewerClosing:     {"Closing GTKWave...", "Cerrando GTKWave..."},
	ViewerClosed:      {"GTKWave closed.", "GTKWave cerrado."},
	ViewerCloseError:  {"Error closing GTKWave: %v", "Error al cerrar GTKWave: %v"},
	ViewerExited:      {"GTKWave exited (code %d).", "GTKWave terminó (código %d)."},
	ViewerStartError:  {"Could not start GTKWave: %v", "No se pudo iniciar GTKWave: %v"},
	ProjectLoaded:     {"Project loaded: mode=%s, tb=%d, sources=%d", "Proyecto cargado: modo=%s, tb=%d, fuentes=%d"},
	ValidationSuccess: {"Project is valid. mode=%s tb=%s sources=%d", "Proyecto válido. modo=%s tb=%s fuentes=%d"},
	ProblemsCount:     {"Problems found: %d", "Problemas encontrados: %d"},
	AppName:           {"BenchSim", "BenchSim"},
	PopupErrorTitle:   {"Error", "Error"},
	PopupWarningTitle: {"Warning", "Advertencia"},
	PopupInfoTitle:    {"Information", "Información"},
}

var cat = build()

func build() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, text := range entries {
		// SetString only fails on malformed messages, which the table above never holds.
		_ = b.SetString(language.English, string(key), text[0])
		_ = b.SetString(language.Spanish, string(key), text[1])
	}
	return b
}

// Normalize returns a supported language code.
func Normalize(lang string) string {
	if _, ok := langs[lang]; ok {
		return lang
	}
	return DefaultLang
}

// Translator renders catalog entries in one language.
type Translator struct {
	lang    string
	printer *message.Printer
}

// New creates a translator for lang, falling back to English.
func New(lang string) *Translator {
	lang = Normalize(lang)
	return &Translator{
		lang:    lang,
		printer: message.NewPrinter(langs[lang], message.Catalog(cat)),
	}
}

// Lang returns the normalized language code.
func (t *Translator) Lang() string {
	return t.lang
}

// T renders key with args.
func (t *Translator) T(key Key, args ...any) string {
	return t.printer.Sprintf(string(key), args...)
}
