package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/statline/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 4096)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MaxSessions, convey.ShouldEqual, 10_000)
			convey.So(cfg.DefaultValues, convey.ShouldResemble, []int{15, 14, 13, 12, 10, 9, 8})
			convey.So(cfg.StreamBuffer, convey.ShouldEqual, 8)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid setting", t, func() {
		cases := map[string]func(*config.Config){
			"addr must not be empty":   func(c *config.Config) { c.Addr = "" },
			"default_values must hold": func(c *config.Config) { c.DefaultValues = []int{1, 2, 3} },
			"max_sessions":             func(c *config.Config) { c.MaxSessions = 0 },
			"queue_size":               func(c *config.Config) { c.QueueSize = -1 },
			"stream_buffer":            func(c *config.Config) { c.StreamBuffer = 0 },
			"log_format":               func(c *config.Config) { c.LogFormat = "xml" },
		}

		for want, mutate := range cases {
			cfg := config.New()
			mutate(cfg)
			err := cfg.Validate()

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, want)
		}

		convey.Convey("Then log_format is case insensitive", func() {
			cfg := config.New()
			cfg.LogFormat = "JSON"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
