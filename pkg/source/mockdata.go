package source

import "github.com/japaniel/britishdays/pkg/slang"

// DefaultMockTerms is the built-in list served by the mock source.
var DefaultMockTerms = []slang.Term{
	{Text: "brilliant", Definition: "Excellent, wonderful, or great", Example: "That's absolutely brilliant!", Category: "praise", Translation: "Wspaniały, świetny, doskonały", Pronunciation: "BRIL-yənt"},
	{Text: "chuffed", Definition: "Very pleased or happy", Example: "I'm dead chuffed with my new car!", Category: "emotion", Translation: "Bardzo zadowolony, uszczęśliwiony", Pronunciation: "CHUFED"},
	{Text: "gutted", Definition: "Extremely disappointed or upset", Example: "I was gutted when they cancelled the concert.", Category: "emotion", Translation: "Bardzo rozczarowany, zdruzgotany", Pronunciation: "GUT-id"},
	{Text: "knackered", Definition: "Very tired or exhausted", Example: "I'm absolutely knackered after that workout.", Category: "state", Translation: "Wykończony, zmęczony, wycieńczony", Pronunciation: "NAK-əd"},
	{Text: "peckish", Definition: "Slightly hungry", Example: "I'm feeling a bit peckish, fancy a snack?", Category: "state", Translation: "Lekko głodny, mający ochotę na przekąskę", Pronunciation: "PEK-ish"},
	{Text: "cheeky", Definition: "Playfully rude or impudent", Example: "Don't be so cheeky!", Category: "behavior", Translation: "Bezczelny (w zabawny sposób), zuchwały", Pronunciation: "CHEE-kee"},
	{Text: "dodgy", Definition: "Suspicious, unreliable, or of poor quality", Example: "That pub looks a bit dodgy.", Category: "description", Translation: "Podejrzany, wątpliwy, kiepski", Pronunciation: "DOJ-ee"},
	{Text: "fancy", Definition: "To want or desire something; to like someone romantically", Example: "Do you fancy a cuppa?", Category: "desire", Translation: "Mieć ochotę na coś, podobać się", Pronunciation: "FAN-see"},
	{Text: "kip", Definition: "Sleep or a nap", Example: "I need to have a kip.", Category: "action", Translation: "Drzemka, sen, przespać się", Pronunciation: "KIP"},
	{Text: "mate", Definition: "Friend or buddy", Example: "Alright, mate?", Category: "greeting", Translation: "Kumpel, kolega, ziomek", Pronunciation: "MATE"},
	{Text: "quid", Definition: "British pound (£1)", Example: "That costs twenty quid.", Category: "money", Translation: "Funt brytyjski (potocznie)", Pronunciation: "KWID"},
	{Text: "bloke", Definition: "A man or guy", Example: "He's a decent bloke.", Category: "person", Translation: "Facet, gość, koleś", Pronunciation: "BLOKE"},
	{Text: "cheers", Definition: "Thank you or goodbye", Example: "Cheers for the help!", Category: "greeting", Translation: "Dzięki, na zdrowie, do zobaczenia", Pronunciation: "CHEERZ"},
	{Text: "proper", Definition: "Very or really; genuine", Example: "That was proper good!", Category: "intensifier", Translation: "Naprawdę, bardzo, porządny", Pronunciation: "PROP-ər"},
	{Text: "mental", Definition: "Crazy or insane", Example: "The party was absolutely mental!", Category: "description", Translation: "Szalony, zwariowany, obłąkany", Pronunciation: "MEN-təl"},
	{Text: "brolly", Definition: "Umbrella", Example: "Better bring a brolly, it looks like rain.", Category: "object", Translation: "Parasol, parasolka", Pronunciation: "BROL-ee"},
	{Text: "bog", Definition: "Toilet or bathroom", Example: "Where's the bog?", Category: "place", Translation: "Kibel, toaleta (potocznie)", Pronunciation: "BOG"},
	{Text: "naff", Definition: "Uncool, unfashionable, or of poor quality", Example: "That shirt is a bit naff.", Category: "description", Translation: "Niemodny, kiepski, tandetny", Pronunciation: "NAF"},
	{Text: "gobsmacked", Definition: "Utterly astonished or amazed", Example: "I was absolutely gobsmacked!", Category: "emotion", Translation: "Zszokowany, oszołomiony, zdumiony", Pronunciation: "GOB-smakt"},
	{Text: "skint", Definition: "Having no money; broke", Example: "I'm completely skint this month.", Category: "state", Translation: "Spłukany, bez grosza", Pronunciation: "SKINT"},
	{Text: "bog-standard", Definition: "Ordinary, basic, nothing special", Example: "It's just a bog-standard car.", Category: "description", Translation: "Zwyczajny, podstawowy, standardowy", Pronunciation: "BOG-STAN-dərd"},
	{Text: "botched", Definition: "Done badly or clumsily", Example: "They completely botched the repair.", Category: "action", Translation: "Spartaczony, zepsuty, źle wykonany", Pronunciation: "BOTCHT"},
	{Text: "chinwag", Definition: "A chat or conversation", Example: "Let's have a chinwag over tea.", Category: "action", Translation: "Pogawędka, pogaduszki", Pronunciation: "CHIN-wag"},
	{Text: "faff", Definition: "To waste time on trivial things", Example: "Stop faffing about and get ready!", Category: "action", Translation: "Marnować czas, obijać się", Pronunciation: "FAF"},
	{Text: "miffed", Definition: "Slightly annoyed or offended", Example: "She was a bit miffed about the comment.", Category: "emotion", Translation: "Urażony, lekko zdenerwowany", Pronunciation: "MIFT"},
	{Text: "cuppa", Definition: "A cup of tea", Example: "Fancy a cuppa?", Category: "food", Translation: "Filiżanka herbaty", Pronunciation: "KUP-ə"},
	{Text: "barmy", Definition: "Crazy, foolish", Example: "You must be barmy!", Category: "description", Translation: "Zwariowany, stuknięty", Pronunciation: "BAR-mee"},
	{Text: "codswallop", Definition: "Nonsense, rubbish", Example: "That's complete codswallop!", Category: "description", Translation: "Bzdury, bujda, nonsens", Pronunciation: "KODZ-wol-əp"},
	{Text: "daft", Definition: "Silly, stupid", Example: "Don't be daft!", Category: "description", Translation: "Głupi, niemądry, durny", Pronunciation: "DAFT"},
	{Text: "jammy", Definition: "Lucky", Example: "You jammy git!", Category: "description", Translation: "Szczęściarz, mający fart", Pronunciation: "JAM-ee"},
	{Text: "nosh", Definition: "Food", Example: "Let's grab some nosh.", Category: "food", Translation: "Żarcie, jedzenie", Pronunciation: "NOSH"},
	{Text: "scrummy", Definition: "Delicious", Example: "That cake was scrummy!", Category: "food", Translation: "Pyszny, smaczny", Pronunciation: "SKRUM-ee"},
	{Text: "knickers", Definition: "Women's underwear", Example: "Don't get your knickers in a twist!", Category: "clothing", Translation: "Majtki damskie", Pronunciation: "NIK-ərz"},
	{Text: "trollied", Definition: "Very drunk", Example: "He was completely trollied!", Category: "state", Translation: "Zalany, pijany w trupa", Pronunciation: "TROL-eed"},
	{Text: "wazzock", Definition: "A stupid or annoying person", Example: "You absolute wazzock!", Category: "insult", Translation: "Idiota, dureń, pajac", Pronunciation: "WAZ-ək"},
	{Text: "wonky", Definition: "Unsteady, not straight", Example: "That table is a bit wonky.", Category: "description", Translation: "Krzywy, chwiejny, nierówny", Pronunciation: "WON-kee"},
}
