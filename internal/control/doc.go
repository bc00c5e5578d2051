// Package control provides feedback controllers for trajectory tracking.
//
// Controllers implement the [dynamo.FeedbackController] interface. Each
// call receives the tracking error together with the reference velocity
// and acceleration along the same axis:
//
//   - [PIDF]: PID feedback on the error plus velocity, acceleration and
//     static-friction feedforward
//
// # Usage
//
//	pidf, err := control.NewPIDF([]float64{-0.5, 0, 0, 0.01, 0, 0})
//	u := pidf.Update(err, t, refVel, refAcc)
package control
