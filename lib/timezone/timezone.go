package timezone

import "time"

var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Europe/Berlin")
	if err != nil {
		panic(err)
	}
}

// force the timezone to be the canteens' local one, the servers may
// end up in another region which would shift <time.Time>.Year()/Month()/Day()
// around midnight and make "today" point at the wrong menu
func Now() time.Time {
	return time.Now().In(Location)
}
