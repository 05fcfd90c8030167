// Package eligibility decides whether a student may take a course given
// the courses they have completed and the credits they have accumulated.
//
// A course is eligible when every one of its requirement atoms holds:
//   - a course atom holds when that course, in the same program, is completed;
//   - a credit atom holds when the accumulated credits reach the threshold
//     (inclusive);
//   - a course-with-credits atom holds when the course is completed. Its
//     threshold is carried for display and is not compared against the
//     student's credits.
//
// A course with no atoms is always eligible. Unknown courses are never
// eligible.
package eligibility
