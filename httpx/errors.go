package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mbolis/quick-forms/formerr"
	"github.com/mbolis/quick-forms/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and formatted message
func LogStatusMsg(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	http.Error(w, errMsg, status)
}

// Will map an error of the form layer to its HTTP status. Unroutable
// forms and missing entities share the same generic 404.
func WriteError(w http.ResponseWriter, code string, err error) {
	var (
		invalid     *formerr.ValidationError
		dupSlug     *formerr.DuplicateSlugError
		hasSubs     *formerr.HasSubmissionsError
		conflict    *formerr.VersionConflictError
		notFound    *formerr.NotFoundError
		unroutable  *formerr.UnroutableLocationError
		compensated *formerr.CompensationFailureError
	)

	switch {
	case errors.As(err, &invalid):
		LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, code, "%s", err)
	case errors.As(err, &dupSlug), errors.As(err, &hasSubs), errors.As(err, &conflict):
		LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code, "%s", err)
	case errors.As(err, &notFound):
		LogNotFound(w, code, notFound.ID)
	case errors.As(err, &unroutable):
		log.WithError(err).Warn(code)
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	case errors.As(err, &compensated):
		log.WithFields(log.Fields{"rollback": compensated.CompensationErr}).Errorf("%s: %s", code, compensated.Err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	default:
		LogInternalError(w, code, err)
	}
}
