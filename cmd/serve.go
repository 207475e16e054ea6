package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sampa-labs/brgen-cli/internal/location"
	"github.com/sampa-labs/brgen-cli/internal/model"
	"github.com/sampa-labs/brgen-cli/internal/names"
	"github.com/sampa-labs/brgen-cli/internal/sampler"
	"github.com/sampa-labs/brgen-cli/internal/store"
	"github.com/sampa-labs/brgen-cli/pkg/viacep"
)

const (
	// maxServeQty caps one /v1/sample response.
	maxServeQty = 1000

	// maxUpsertBytes caps an upsert request body. The full municipal table
	// runs to a few megabytes.
	maxUpsertBytes = 16 << 20
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the generator over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initSampler(dataPaths{}, 0)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: buildRouter(env, st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter wires the API routes over env. One RWMutex guards the
// samplers: upserts take the write lock, sampling reads. A nil st skips
// lookup tracing.
func buildRouter(env *samplerEnv, st store.Store) http.Handler {
	var mu sync.RWMutex

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/location", func(w http.ResponseWriter, r *http.Request) {
			opts := location.LocationOptions{
				CityOnly:       queryBool(r, "city_only"),
				StateAbbrOnly:  queryBool(r, "state_abbr_only"),
				StateFullOnly:  queryBool(r, "state_full_only"),
				OnlyCEP:        queryBool(r, "only_cep"),
				CEPWithoutDash: queryBool(r, "cep_without_dash"),
			}

			mu.RLock()
			out, err := env.Locations.RandomLocation(opts)
			mu.RUnlock()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"location": out})
		})

		r.Get("/sample", func(w http.ResponseWriter, r *http.Request) {
			opts, err := sampleQueryOptions(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}

			mu.RLock()
			records, err := env.Generator.Generate(r.Context(), opts)
			mu.RUnlock()
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, records)
		})

		r.Post("/locations/cities", func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxUpsertBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, eris.Wrap(err, "serve: read body"))
				return
			}

			mu.Lock()
			err = env.Locations.UpsertCities(json.RawMessage(body))
			count := len(env.Locations.Dataset().CityKeys())
			mu.Unlock()
			if err != nil {
				writeError(w, upsertStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"cities": count})
		})

		r.Post("/locations/states", func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxUpsertBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, eris.Wrap(err, "serve: read body"))
				return
			}

			mu.Lock()
			err = env.Locations.UpsertStates(json.RawMessage(body))
			count := len(env.Locations.Dataset().StateKeys())
			mu.Unlock()
			if err != nil {
				writeError(w, upsertStatus(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]int{"states": count})
		})

		r.Get("/cep/{code}", func(w http.ResponseWriter, r *http.Request) {
			res := env.Resolver.ResolveOne(r.Context(), chi.URLParam(r, "code"))

			if st != nil {
				lookup := model.CEPLookup{CEP: res.CEP, OK: res.OK()}
				if res.Err != nil {
					lookup.Error = res.Err.Error()
				}
				if err := st.RecordCEPLookup(r.Context(), lookup); err != nil {
					zap.L().Warn("failed to record cep lookup", zap.Error(err))
				}
			}

			if res.Err != nil {
				status := http.StatusBadGateway
				switch {
				case viacep.IsNotFound(res.Err):
					status = http.StatusNotFound
				case viacep.IsInvalid(res.Err):
					status = http.StatusBadRequest
				}
				writeError(w, status, res.Err)
				return
			}
			writeJSON(w, http.StatusOK, res.Address)
		})
	})

	return r
}

// sampleQueryOptions maps /v1/sample query parameters onto generator
// options. Parameter names match the CLI flags in snake_case.
func sampleQueryOptions(r *http.Request) (sampler.Options, error) {
	q := r.URL.Query()

	qty := 1
	if s := q.Get("qty"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return sampler.Options{}, eris.Errorf("serve: invalid qty %q", s)
		}
		qty = n
	}
	if qty > maxServeQty {
		return sampler.Options{}, eris.Errorf("serve: qty %d exceeds the maximum %d", qty, maxServeQty)
	}

	period, err := names.ParseTimePeriod(q.Get("time_period"))
	if err != nil {
		return sampler.Options{}, err
	}

	boolDefault := func(key string, def bool) bool {
		if !q.Has(key) {
			return def
		}
		return queryBool(r, key)
	}

	return sampler.Options{
		Quantity:       qty,
		CityOnly:       queryBool(r, "city_only"),
		StateAbbrOnly:  queryBool(r, "state_abbr_only"),
		StateFullOnly:  queryBool(r, "state_full_only"),
		OnlyCEP:        queryBool(r, "only_cep"),
		CEPWithoutDash: queryBool(r, "cep_without_dash"),
		TimePeriod:     period,
		ReturnOnlyName: queryBool(r, "return_only_name"),
		NameRaw:        queryBool(r, "name_raw"),
		OnlySurname:    queryBool(r, "only_surname"),
		TopForty:       queryBool(r, "top_40"),
		OneSurname:     queryBool(r, "one_surname"),
		AlwaysMiddle:   queryBool(r, "always_middle"),
		OnlyMiddle:     queryBool(r, "only_middle"),
		OnlyDocument:   queryBool(r, "only_document"),
		AlwaysCPF:      boolDefault("always_cpf", true),
		AlwaysPIS:      queryBool(r, "always_pis"),
		AlwaysCNPJ:     queryBool(r, "always_cnpj"),
		AlwaysCEI:      queryBool(r, "always_cei"),
		AlwaysRG:       boolDefault("always_rg", true),
		AlwaysPhone:    boolDefault("always_phone", true),
		OnlyCPF:        queryBool(r, "only_cpf"),
		OnlyPIS:        queryBool(r, "only_pis"),
		OnlyCNPJ:       queryBool(r, "only_cnpj"),
		OnlyCEI:        queryBool(r, "only_cei"),
		OnlyRG:         queryBool(r, "only_rg"),
		OnlyPhone:      queryBool(r, "only_fone"),
		IncludeIssuer:  boolDefault("include_issuer", true),
		AllData:        queryBool(r, "all"),
		APILookup:      queryBool(r, "make_api_call"),
	}, nil
}

// queryBool reads a boolean query parameter; a bare key counts as true.
func queryBool(r *http.Request, key string) bool {
	if !r.URL.Query().Has(key) {
		return false
	}
	v := r.URL.Query().Get(key)
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// upsertStatus maps upsert failures to HTTP codes: type errors are the
// caller's fault, anything else is ours.
func upsertStatus(err error) int {
	if errors.Is(err, location.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
