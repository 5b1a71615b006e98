package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/artype/internal/app"
	"github.com/okian/artype/internal/config"
	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/scoring"
	"github.com/okian/artype/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var sample = dimension.Scores{L: 8, S: 2, A: 9, R: 4, E: 3, M: 10, F: 6, C: 6}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it reports sensible defaults before starting", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["guestStore"], ShouldEqual, config.StoreMemory)
			So(stats["queueSize"], ShouldEqual, 1024)
			So(svc.Thresholds(), ShouldResemble, scoring.DefaultThresholds())
		})
	})

	Convey("Given options built from configuration", t, func() {
		cfg := config.New()
		cfg.NotifierCount = 3
		cfg.NotificationQueueSize = 10
		cfg.GuestStore = config.StoreFile
		cfg.GuestDataDir = t.TempDir()
		cfg.HighConfidenceThreshold = 40
		svc := service.New(service.OptionsFromConfig(cfg)...)

		Convey("Then the service carries them", func() {
			stats := svc.GetStats()
			So(stats["notifierCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 10)
			So(stats["guestStore"], ShouldEqual, config.StoreFile)
			So(svc.Thresholds().High, ShouldEqual, 40)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("Then every operation reports it", func() {
			_, err := svc.Score(ctx, scoring.Submission{Scores: sample})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.CreateGuest(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.SaveArtwork(ctx, "g", "a")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.DrainNotifications(ctx, "g")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(errors.Is(svc.ClearGuest(ctx, "g"), service.ErrNotStarted), ShouldBeTrue)
			So(svc.Variants(), ShouldBeNil)
			So(svc.DefaultVariant(), ShouldEqual, "")
		})

		Convey("Then Stop is a no-op", func() {
			So(svc.Stop(ctx), ShouldBeNil)
		})
	})
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithNotifierCount(2))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When starting the service", func() {
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["defaultVariant"], ShouldEqual, scoring.VariantEnhanced)
				So(stats["totalGuests"], ShouldEqual, 0)
				So(stats["queueLength"], ShouldEqual, 0)
			})

			Convey("And starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And both built-in variants are listed", func() {
				vs := svc.Variants()
				So(len(vs), ShouldEqual, 2)
				So(vs[0].Name, ShouldEqual, scoring.VariantBalanced)
				So(vs[1].Name, ShouldEqual, scoring.VariantEnhanced)
			})
		})

		Convey("When stopping after start", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the service reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})

	Convey("Given an unknown default variant", t, func() {
		svc := service.New(service.WithDefaultVariant("classic"))
		err := svc.Start(context.Background())

		Convey("Then Start fails", func() {
			So(errors.Is(err, scoring.ErrUnknownVariant), ShouldBeTrue)
		})
	})

	Convey("Given inverted thresholds", t, func() {
		svc := service.New(service.WithThresholds(scoring.Thresholds{High: 10, Medium: 20}))
		err := svc.Start(context.Background())

		Convey("Then Start fails", func() {
			So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
		})
	})
}

func TestService_Score(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithNotifierCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("When scoring with the default variant", func() {
			res, err := svc.Score(ctx, scoring.Submission{Scores: sample})

			Convey("Then the enhanced result is returned", func() {
				So(err, ShouldBeNil)
				So(res.TypeCode, ShouldEqual, dimension.TypeCode("LAMF"))
				So(res.Strength.Confidence, ShouldEqual, scoring.ConfidenceHigh)
			})
		})

		Convey("When scoring with the balanced variant", func() {
			res, err := svc.Score(ctx, scoring.Submission{Variant: scoring.VariantBalanced, Scores: sample})
			So(err, ShouldBeNil)
			So(res.TypeCode, ShouldEqual, dimension.TypeCode("LAMC"))
		})

		Convey("When the variant is unknown", func() {
			_, err := svc.Score(ctx, scoring.Submission{Variant: "nope", Scores: sample})
			So(errors.Is(err, scoring.ErrUnknownVariant), ShouldBeTrue)
		})
	})

	Convey("Given maximum overrides for the balanced variant", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithMaximumOverrides(map[string]map[string]float64{
			"Balanced": {"c": 5},
		}))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		Convey("Then the changed table decides the F/C pair", func() {
			res, err := svc.Score(ctx, scoring.Submission{Variant: scoring.VariantBalanced, Scores: sample})
			So(err, ShouldBeNil)
			So(res.Normalized.C, ShouldEqual, 100)
			So(res.TypeCode, ShouldEqual, dimension.TypeCode("LAMC"))
		})
	})
}

func TestBuildRegistry(t *testing.T) {
	Convey("Given overrides for an unknown variant", t, func() {
		_, err := service.BuildRegistry(scoring.VariantEnhanced, map[string]map[string]float64{"classic": {"L": 1}})
		So(errors.Is(err, scoring.ErrUnknownVariant), ShouldBeTrue)
	})

	Convey("Given a zero maximum override", t, func() {
		_, err := service.BuildRegistry(scoring.VariantEnhanced, map[string]map[string]float64{"enhanced": {"L": 0}})
		So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
	})

	Convey("Given an override with an unknown letter", t, func() {
		_, err := service.BuildRegistry(scoring.VariantEnhanced, map[string]map[string]float64{"enhanced": {"X": 3}})
		So(errors.Is(err, scoring.ErrInvalidConfiguration), ShouldBeTrue)
	})

	Convey("Given a valid override", t, func() {
		r, err := service.BuildRegistry(scoring.VariantBalanced, map[string]map[string]float64{"enhanced": {"L": 20}})

		Convey("Then only the named letter changes", func() {
			So(err, ShouldBeNil)
			So(r.Default(), ShouldEqual, scoring.VariantBalanced)
			v, err := r.Get(scoring.VariantEnhanced)
			So(err, ShouldBeNil)
			So(v.Maximums.Value(dimension.L), ShouldEqual, 20)
			So(v.Maximums.Value(dimension.S), ShouldEqual, 10)
		})
	})
}
