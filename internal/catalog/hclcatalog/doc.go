// Package hclcatalog loads course catalogs written in HCL.
//
// A catalog file holds `course` blocks, either at the top level or grouped
// inside a `program` block:
//
//	program "Software Engineering" {
//	  course "CS101" {
//	    name    = "Introduction to Programming"
//	    credits = 4
//	    level   = 1
//	  }
//
//	  course "CS102" {
//	    name     = "Data Structures"
//	    credits  = "3,5"
//	    level    = 2
//	    requires = ["CS101", "20 CRED"]
//	  }
//	}
//
//	course "MA101" {
//	  name    = "Calculus"
//	  credits = 4
//	  program = "General"
//	}
//
// `credits` and `level` accept numbers or strings. `requires` accepts a
// single requirement string or a list of strings, which are joined with
// commas. A `program` attribute on a course nested in a program block
// overrides the block label.
package hclcatalog
