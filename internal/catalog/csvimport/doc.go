// Package csvimport reads the spreadsheet export of a study plan.
//
// The first row names the columns. Recognized headers, matched without
// regard to case or accents, are:
//
//	Código, Asignatura, Créditos, Nivel, Carrera, Requisitos
//
// Código and Asignatura are required. Rows where either is blank are
// dropped. The other cells go through the catalog sanitizers, so blank or
// "nan" cells take their defaults.
package csvimport
