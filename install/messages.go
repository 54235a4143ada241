package install

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Spanish,
}

var (
	messageCatalog = buildCatalog()
	languageMatch  = language.NewMatcher(supportedLanguages)
)

var errorMessages = map[language.Tag]map[ErrorKind]string{
	language.English: {
		ErrCorruptFile:    "Installation aborted because the add-on appears to be corrupt.",
		ErrDownloadFailed: "Download failed. Please check your connection.",
		ErrInstallFailed:  "Installation failed. Please try again.",
		ErrFatalInstall:   "An unexpected error occurred during installation.",
		ErrFatalUninstall: "An unexpected error occurred during uninstallation.",
		ErrFatal:          "An unexpected error occurred.",
	},
	language.German: {
		ErrCorruptFile:    "Die Installation wurde abgebrochen, da das Add-on beschädigt zu sein scheint.",
		ErrDownloadFailed: "Download fehlgeschlagen. Bitte überprüfen Sie Ihre Verbindung.",
		ErrInstallFailed:  "Installation fehlgeschlagen. Bitte versuchen Sie es erneut.",
		ErrFatalInstall:   "Bei der Installation ist ein unerwarteter Fehler aufgetreten.",
		ErrFatalUninstall: "Beim Entfernen ist ein unerwarteter Fehler aufgetreten.",
		ErrFatal:          "Ein unerwarteter Fehler ist aufgetreten.",
	},
	language.French: {
		ErrCorruptFile:    "Installation interrompue : le module semble être corrompu.",
		ErrDownloadFailed: "Échec du téléchargement. Veuillez vérifier votre connexion.",
		ErrInstallFailed:  "Échec de l’installation. Veuillez réessayer.",
		ErrFatalInstall:   "Une erreur inattendue s’est produite lors de l’installation.",
		ErrFatalUninstall: "Une erreur inattendue s’est produite lors de la désinstallation.",
		ErrFatal:          "Une erreur inattendue s’est produite.",
	},
	language.Spanish: {
		ErrCorruptFile:    "Instalación cancelada porque el complemento parece estar dañado.",
		ErrDownloadFailed: "Falló la descarga. Comprueba tu conexión.",
		ErrInstallFailed:  "Falló la instalación. Inténtalo de nuevo.",
		ErrFatalInstall:   "Se produjo un error inesperado durante la instalación.",
		ErrFatalUninstall: "Se produjo un error inesperado durante la desinstalación.",
		ErrFatal:          "Se produjo un error inesperado.",
	},
}

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range errorMessages {
		for kind, text := range msgs {
			_ = b.SetString(tag, string(kind), text)
		}
	}
	return b
}

// Message returns the localized user text for the error kind. Unsupported
// languages fall back to English; an empty kind yields "".
func (k ErrorKind) Message(tag language.Tag) string {
	if k == ErrNone {
		return ""
	}
	if !k.Valid() {
		k = ErrFatal
	}
	_, idx, _ := languageMatch.Match(tag)
	p := message.NewPrinter(supportedLanguages[idx], message.Catalog(messageCatalog))
	return p.Sprintf(string(k))
}
