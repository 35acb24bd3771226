package content

// SeedArticles returns the built-in practice articles. They seed a fresh
// MemStore and can be imported into a PostgresStore on first run.
func SeedArticles() []Article {
	return []Article{
		{
			ID:    1,
			Title: "A Typical Day in the UK",
			Content: `I usually start my day by waking up, [getting out of bed], and [throwing on] some clothes. Then I [head to] the kitchen to make my breakfast. I normally fry two eggs and [spread peanut butter on] four slices of bread. Once the eggs are ready, I put them between the slices to make a sandwich. Then I [warm up] some milk in the microwave and enjoy my breakfast quietly before the day gets busy.

After eating, I [tidy up a bit] and [pack my laptop] and everything I need for school. I grab my bag, put on my coat and shoes, lock the door, and [head out]. I walk to the train station — it’s right inside the university, which is really convenient. I [catch the train] to class; it’s only one stop. Once I arrive on campus, I walk to my classroom and [get ready for] the lecture.

All my classes are taught entirely in English, so I have to [concentrate quite hard]. At first, I [struggled to keep up], especially when the teacher spoke fast. But after a few weeks, I [got used to] the pace. Even if I miss a few words, I can still understand the main idea.

At lunchtime, I don’t go to the canteen because it’s expensive. Instead, I bring my own lunch. At school, I just [pop it into] the microwave, [heat it up], and [find a quiet place] to eat. It’s healthier, cheaper, and honestly, much tastier.

After lunch, I usually go outside to [get some sun]. I always feel a bit sleepy after eating, so standing outside helps [clear my head]. Once I feel awake again, I head to the library. The atmosphere helps me [stay focused] because everyone around me is working hard.

When I’m [done studying], I [pack up] and go to the train station. The train is often [delayed or cancelled], so sometimes I wait longer than expected. Once I get home, I [take a short nap] to [recharge] before my part-time job.

After work, I come home, [relax for a bit], and then make dinner. After dinner, I [take a warm shower] to [unwind]. Sometimes I [lose track of time] while coding. Finally, I [switch off the lights] and fall asleep.`,
		},
		{
			ID:    2,
			Title: "Grocery Shopping: Supermarkets & Markets",
			Content: `Living in the UK as a student means I have to cook for myself, so I usually do my [weekly shop] on Saturdays. Since I’m [on a tight budget], I try to be smart about where I buy my food.

For basics like milk, bread, and meat, I go to big supermarkets like Tesco or Lidl. I grab a trolley or a basket at the entrance and start walking down the [aisles]. I always check the ["reduced to clear" section] first — these are items with yellow stickers that are expiring soon but are much cheaper. It’s a great way to [save a few pounds].

When I’m done, I usually go to the [self-checkout] machines. I scan the barcodes myself, pack my items into my backpack, and pay using my phone. Everyone here uses [contactless payment]; it’s so fast and convenient.

However, for fruit and vegetables, I prefer the local [street market]. The atmosphere there is completely different. It’s loud, lively, and often crowded. The stall owners shout out prices like "One pound a bowl!", which is a real [bargain] compared to the supermarket prices.

The [fresh produce] at the market is usually better quality too, but there’s a catch: most stalls only accept cash. So, I always have to remember to [withdraw some cash] before I go. I walk around, pick the best-looking vegetables, and pay the vendor.

By the time I finish, my bags are usually [heavy and packed full]. The walk home can be tiring, but once I get back and [stock up the fridge], I feel really satisfied knowing I have enough food for the whole week.`,
		},
	}
}
