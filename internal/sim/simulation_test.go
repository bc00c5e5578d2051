package sim_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/livetrain/internal/clock"
	"github.com/san-kum/livetrain/internal/dynamo"
	"github.com/san-kum/livetrain/internal/integrators"
	"github.com/san-kum/livetrain/internal/noise"
	"github.com/san-kum/livetrain/internal/physics"
	"github.com/san-kum/livetrain/internal/robot"
	"github.com/san-kum/livetrain/internal/sim"
	"github.com/san-kum/livetrain/internal/trajectory"
)

type wall struct {
	mu  sync.Mutex
	now time.Time
}

func (w *wall) Now() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

func (w *wall) Advance(seconds float64) {
	w.mu.Lock()
	w.now = w.now.Add(time.Duration(seconds * float64(time.Second)))
	w.mu.Unlock()
}

// recorder is a body that records the times it was updated with.
type recorder struct {
	name   string
	times  []float64
	resets int
	err    error
	log    *[]string
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Update(t float64) error {
	r.times = append(r.times, t)
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
	return r.err
}

func (r *recorder) ResetTimestamp() { r.resets++ }

type collector struct {
	mu      sync.Mutex
	samples []dynamo.Telemetry
}

func (c *collector) OnStep(tel dynamo.Telemetry) {
	c.mu.Lock()
	c.samples = append(c.samples, tel)
	c.mu.Unlock()
}

type countMetric struct{ n float64 }

func (c *countMetric) Name() string             { return "passes" }
func (c *countMetric) Observe(dynamo.Telemetry) { c.n++ }
func (c *countMetric) Value() float64           { return c.n }
func (c *countMetric) Reset()                   { c.n = 0 }

func build(w *wall, seed int64) (*sim.Simulation, *robot.Robot) {
	clk := clock.New(clock.WithNow(w.Now))
	gen := noise.NewGenerator(seed, nil)
	gen.SetEnabled(false)
	body := physics.NewBody("robot", integrators.NewExact(), clk)
	r := robot.New(18, 18, body, gen, nil)
	r.SetFollowing(false)
	return sim.New(clk, gen, r, sim.DefaultOptions()), r
}

var _ = Describe("Simulation", func() {
	var (
		w *wall
		s *sim.Simulation
		r *robot.Robot
	)

	BeforeEach(func() {
		w = &wall{now: time.Unix(1700000000, 0)}
		s, r = build(w, 1)
	})

	It("does nothing while paused with no advance pending", func() {
		w.Advance(10)
		Expect(s.Update()).To(Succeed())
		Expect(s.Passes()).To(BeZero())
		Expect(s.Time()).To(BeZero())
	})

	Describe("AdvanceBy", func() {
		It("steps at the resolution and banks time", func() {
			rec := &recorder{name: "rec"}
			s.AddBody(rec)

			Expect(s.AdvanceBy(0.05)).To(Succeed())
			Expect(s.Update()).To(Succeed())

			Expect(s.Passes()).To(Equal(5))
			Expect(s.Time()).To(BeNumerically("~", 0.05, 1e-12))
			Expect(rec.times).To(HaveLen(5))
			Expect(rec.times[0]).To(BeNumerically("~", 0.01, 1e-12))
			Expect(rec.times[4]).To(BeNumerically("~", 0.05, 1e-12))
		})

		It("updates bodies in registration order with the robot first", func() {
			var order []string
			s.AddBody(&recorder{name: "a", log: &order})
			s.AddBody(&recorder{name: "b", log: &order})

			Expect(s.AdvanceBy(0.02)).To(Succeed())
			Expect(s.Update()).To(Succeed())
			Expect(order).To(Equal([]string{"a", "b", "a", "b"}))
		})

		It("skips integration on the first step after the timestamp reset", func() {
			r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
			Expect(s.AdvanceBy(1)).To(Succeed())
			Expect(s.Update()).To(Succeed())
			Expect(r.Pose().X).To(BeNumerically("~", 99, 1e-6))
		})

		It("is independent of wall time", func() {
			r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
			Expect(s.AdvanceBy(0.5)).To(Succeed())
			w.Advance(1000)
			Expect(s.Update()).To(Succeed())
			Expect(s.Time()).To(BeNumerically("~", 0.5, 1e-12))
		})

		It("rejects amounts outside (0, MaxAdvance]", func() {
			for _, amount := range []float64{0, -1, sim.DefaultMaxAdvance + 1} {
				Expect(s.AdvanceBy(amount)).To(MatchError(dynamo.ErrParameterBounds))
			}
		})

		It("resets every body timestamp", func() {
			rec := &recorder{name: "rec"}
			s.AddBody(rec)
			Expect(s.AdvanceBy(0.01)).To(Succeed())
			Expect(rec.resets).To(Equal(1))
		})
	})

	Describe("running", func() {
		It("runs one pass at the current simulation time", func() {
			rec := &recorder{name: "rec"}
			s.AddBody(rec)
			s.SetRunning(true)
			w.Advance(0.5)

			Expect(s.Update()).To(Succeed())
			Expect(rec.times).To(Equal([]float64{0.5}))
			Expect(s.Running()).To(BeTrue())
		})

		It("scales integration by the clock speed", func() {
			r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
			Expect(s.SetSpeed(2)).To(Succeed())
			s.SetRunning(true)

			Expect(s.Update()).To(Succeed())
			w.Advance(0.5)
			Expect(s.Update()).To(Succeed())

			Expect(s.Time()).To(BeNumerically("~", 0.5, 1e-9))
			Expect(r.Pose().X).To(BeNumerically("~", 100, 1e-6))
		})

		It("rejects negative speed", func() {
			Expect(s.SetSpeed(-1)).To(MatchError(dynamo.ErrParameterBounds))
		})

		It("holds simulation time while paused", func() {
			s.SetRunning(true)
			w.Advance(2)
			s.SetRunning(false)
			w.Advance(5)
			Expect(s.Time()).To(BeNumerically("~", 2, 1e-9))
		})
	})

	It("resets to the initial pose with time zeroed", func() {
		r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
		s.SetRunning(true)
		Expect(s.AdvanceBy(1)).To(Succeed())
		Expect(s.Update()).To(Succeed())

		s.Reset()
		Expect(s.Running()).To(BeFalse())
		Expect(s.Time()).To(BeZero())
		Expect(r.Pose()).To(Equal(dynamo.Pose{}))
		Expect(r.Velocity()).To(Equal(dynamo.Pose{}))
		Expect(r.Powers()).To(Equal(dynamo.WheelPowers{}))
	})

	It("aggregates body errors with context", func() {
		boom := errors.New("boom")
		s.AddBody(&recorder{name: "bad", err: boom})
		Expect(s.AdvanceBy(0.02)).To(Succeed())

		err := s.Update()
		Expect(err).To(MatchError(boom))
		var simErr *dynamo.SimulationError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Body).To(Equal("bad"))
	})

	It("notifies observers after every pass", func() {
		c := &collector{}
		s.AddObserver(c)
		Expect(s.AdvanceBy(0.03)).To(Succeed())
		Expect(s.Update()).To(Succeed())
		Expect(c.samples).To(HaveLen(3))
		Expect(c.samples[2].Time).To(BeNumerically("~", 0.03, 1e-12))
	})

	It("runs the loop until the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := s.Start(ctx, time.Millisecond)
		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	Describe("RunFor", func() {
		configure := func(s *sim.Simulation) {
			Expect(s.WithRobot(func(r *robot.Robot) error {
				r.SetConstraints(trajectory.NewConstraints(20, 40, 200))
				gains := []float64{-0.2, 0, 0, 0.01, 0, 0}
				if err := r.Follower().SetCoefficients(make([]float64, 6), gains, gains); err != nil {
					return err
				}
				_, err := r.BuildTrajectory([]dynamo.Pose{
					dynamo.NewPose(0, 0, 0),
					dynamo.NewPose(60, 30, 0.5),
				}, trajectory.Trapezoidal, trajectory.HermiteCubic)
				r.SetFollowing(true)
				return err
			})).To(Succeed())
			s.Noise().SetEnabled(true)
			s.Noise().SetStatic(noise.New(noise.Random, -0.5, 0.5))
		}

		It("records one sample per interval plus the start", func() {
			configure(s)
			m := &countMetric{}
			res, err := s.RunFor(context.Background(), 1, 0.1, m)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Samples).To(HaveLen(11))
			Expect(res.StepsTaken).To(Equal(100))
			Expect(res.Metrics["passes"]).To(Equal(100.0))
			Expect(res.Errors).To(BeEmpty())
		})

		It("stops at the duration when the interval is not a whole number of steps", func() {
			configure(s)
			res, err := s.RunFor(context.Background(), 1, 0.015)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(100))
			Expect(s.Time()).To(BeNumerically("~", 1.0, 1e-9))
			Expect(res.Samples).To(HaveLen(68))
			Expect(res.Samples[len(res.Samples)-1].Time).To(BeNumerically("~", 1.0, 1e-9))
		})

		It("is deterministic for a seed", func() {
			a, _ := build(w, 7)
			b, _ := build(&wall{now: time.Unix(0, 0)}, 7)
			configure(a)
			configure(b)

			ra, err := a.RunFor(context.Background(), 2, 0.05)
			Expect(err).NotTo(HaveOccurred())
			rb, err := b.RunFor(context.Background(), 2, 0.05)
			Expect(err).NotTo(HaveOccurred())
			Expect(ra.Samples).To(Equal(rb.Samples))
		})

		It("rejects a non-positive duration", func() {
			_, err := s.RunFor(context.Background(), 0, 0.1)
			Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		})
	})

	It("runs an ensemble over seeds", func() {
		ens := sim.NewEnsemble(func(seed int64) (*sim.Simulation, []dynamo.Metric, error) {
			s, r := build(&wall{now: time.Unix(0, 0)}, seed)
			r.SetPowers(dynamo.WheelPowers{1, 1, 1, 1})
			return s, []dynamo.Metric{&countMetric{}}, nil
		}, 4, 100)

		results, err := ens.Run(context.Background(), 0.5, 0.1)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		for _, res := range results {
			Expect(res.Metrics["passes"]).To(Equal(50.0))
		}
	})
})
