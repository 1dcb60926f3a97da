package pipeline

// Exports for black-box tests.
var WithRunID = withRunID
