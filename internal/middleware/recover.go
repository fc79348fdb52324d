package middleware

import (
	"errors"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/zhouzirui/ai-bestie/backend/pkg/utils"
)

// Recover 捕获处理器中的 panic，记录堆栈并返回固定的 500 JSON。
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			log.Printf("[http] panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rec, debug.Stack())
			if r.Header.Get("Connection") != "Upgrade" {
				utils.RespondError(w, http.StatusInternalServerError, utils.InternalErrorMessage)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
