// internal/courseid/doc.go

/*
Package courseid provides a structured, type-safe representation for course
identifiers, based on the canonical format `CODE|Program`.

The same course code can exist in several academic programs, each with its
own credits and prerequisites, so a code alone never identifies a course.
The pair (code, program) does.

Codes are compared upper-cased. Programs keep their display spelling but are
compared trimmed and case-insensitively.
*/
package courseid
