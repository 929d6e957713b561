package algorithm

import "ltlmc/parallel"

const (
	SectionVisit       parallel.Section = 1
	SectionCleanup     parallel.Section = 2
	SectionParentTrace parallel.Section = 3
	SectionTraceCycle  parallel.Section = 4
	SectionPOR         parallel.Section = 5
	SectionInit        parallel.Section = 9
)
