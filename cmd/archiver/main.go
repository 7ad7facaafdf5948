// Archiver moves tagged files into their owners' archive folders once they
// pass the age threshold of the archive rule bound to the tag.
//
// Usage:
//
//	# Start the rule API and the job scheduler
//	archiver run --config /etc/archiver/config.yaml
//
//	# Index the files of every user under the data directory
//	archiver scan
//
//	# Create a rule: files tagged 12 older than 3 months (by mtime)
//	archiver rules create --tag 12 --unit month --amount 3 --after mtime
//
//	# Sweep one tag now
//	archiver sweep --tag 12
package main

func main() {
	Execute()
}
